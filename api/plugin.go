// Package api defines public API contracts for plugin-qshm.
package api

import "io"

// AccessMode selects how a resource is opened and mapped.
type AccessMode int

const (
	// ReadOnly opens O_RDONLY and maps PROT_READ; writes are refused.
	ReadOnly AccessMode = iota
	// ReadWrite opens O_RDWR and maps PROT_READ|PROT_WRITE, shared with the file.
	ReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	default:
		return "unknown"
	}
}

// Whence tells Seek what offset is relative to. The values match io.SeekStart,
// io.SeekCurrent and io.SeekEnd.
type Whence int

const (
	FromStart   Whence = io.SeekStart
	FromCurrent Whence = io.SeekCurrent
	FromEnd     Whence = io.SeekEnd
)

// IOPlugin is an I/O backend the host asks to open URIs.
type IOPlugin interface {
	// Name identifies the backend, e.g. "qshm".
	Name() string
	// Init prepares the backend before any Open. It reports success.
	Init() bool
	// CanHandle is a side-effect free check of whether uri belongs to this backend.
	CanHandle(uri string) bool
	// Open returns a live handle. A URI that does not belong to the backend
	// yields an error the host treats as "try the next backend".
	Open(uri string, access AccessMode, perm uint32) (Handle, error)
}

// Handle is one open resource. The cursor is owned by the caller, every
// call receives it explicitly. Calls on one Handle must be serialized.
type Handle interface {
	ReadAt(p []byte, off uint64) (int, error)
	WriteAt(p []byte, off uint64) (int, error)
	// Seek computes a new cursor from cur; it never fails.
	Seek(cur uint64, offset int64, whence Whence) uint64
	System(cmd string) bool
	Size() uint64
	Access() AccessMode
	// Live reports whether the handle still owns its mapping.
	Live() bool
	Close() error
}
