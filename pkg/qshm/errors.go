package qshm

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/srediag/plugin-qshm/api"
)

var (
	// ErrNotMine is returned by Open for URIs without the qshm:// prefix. It is
	// a routing signal for the host, not a failure.
	ErrNotMine = api.ErrNotMine
	// ErrIO matches every *IOError.
	ErrIO = errors.New("qshm: io error")
	// ErrOutOfBounds is returned when reading from an offset past the region.
	ErrOutOfBounds = api.ErrOutOfBounds
	// ErrPermissionDenied is returned for writes on read-only resources and
	// for writes that do not fit in the region.
	ErrPermissionDenied = api.ErrPermissionDenied
	// ErrInvalidHandle is returned for calls on a resource without a live mapping.
	ErrInvalidHandle = api.ErrInvalidHandle
)

// IOError reports a failed system call while opening or releasing a region.
type IOError struct {
	Op    string
	Path  string
	Errno syscall.Errno
	Err   error
}

func newIOError(path string, err error) *IOError {
	e := &IOError{Op: "map", Path: path, Err: err}
	var serr *os.SyscallError
	if errors.As(err, &serr) {
		e.Op = serr.Syscall
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	}
	return e
}

func (e *IOError) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("qshm: %s %s: %v (%d)", e.Op, e.Path, e.Errno, int(e.Errno))
	}
	return fmt.Sprintf("qshm: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
