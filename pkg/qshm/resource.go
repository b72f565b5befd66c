package qshm

import (
	"context"
	"fmt"

	"github.com/srediag/plugin-qshm/api"
	internalshm "github.com/srediag/plugin-qshm/internal/shm"
)

var _ api.Handle = (*Resource)(nil)

// errWriteClosed matches both ErrInvalidHandle and ErrPermissionDenied: a
// write without a mapping is refused like any other forbidden write.
var errWriteClosed = fmt.Errorf("%w: %w", ErrInvalidHandle, ErrPermissionDenied)

// Resource owns one mapped shared memory region and its descriptor. It is
// created by Plugin.OpenResource and consumed by Close.
type Resource struct {
	plugin *Plugin
	region *internalshm.MappedRegion
	path   string
	size   uint64
	access api.AccessMode
}

// Size is the region length fixed at open time.
func (r *Resource) Size() uint64 { return r.size }

func (r *Resource) Access() api.AccessMode { return r.access }

// Path is the backing file, the URI without its qshm:// prefix.
func (r *Resource) Path() string { return r.path }

// Fd returns the owned descriptor, or -1 once closed.
func (r *Resource) Fd() int {
	if !r.Live() {
		return -1
	}
	return r.region.Fd
}

func (r *Resource) Live() bool {
	return r != nil && r.region != nil && r.region.Data != nil
}

// ReadAt copies up to len(p) bytes starting at off. Reads running past the
// end are truncated, so n is min(len(p), Size()-off); off beyond Size fails.
func (r *Resource) ReadAt(p []byte, off uint64) (int, error) {
	if !r.Live() {
		return 0, ErrInvalidHandle
	}
	if off > r.size {
		return 0, fmt.Errorf("%w: read at %d, size %d", ErrOutOfBounds, off, r.size)
	}
	n := copy(p, r.region.Data[off:])
	r.plugin.readBytes.Add(context.Background(), int64(n))
	return n, nil
}

// WriteAt copies all of p to off. Nothing is written unless the resource is
// ReadWrite and p fits entirely inside the region.
func (r *Resource) WriteAt(p []byte, off uint64) (int, error) {
	if !r.Live() {
		return 0, errWriteClosed
	}
	if r.access != api.ReadWrite {
		return 0, fmt.Errorf("%w: %s is read-only", ErrPermissionDenied, r.path)
	}
	if off > r.size || uint64(len(p)) > r.size-off {
		return 0, fmt.Errorf("%w: write of %d bytes at %d, size %d", ErrPermissionDenied, len(p), off, r.size)
	}
	n := copy(r.region.Data[off:], p)
	r.plugin.writtenBytes.Add(context.Background(), int64(n))
	return n, nil
}

// Seek returns the cursor that results from moving cur by offset.
//
// FromStart takes offset literally, even past the end; only a negative
// offset is clamped to 0. FromCurrent stays within [0, Size]. FromEnd always
// yields Size and ignores offset. An unknown whence leaves cur unchanged.
func (r *Resource) Seek(cur uint64, offset int64, whence api.Whence) uint64 {
	switch whence {
	case api.FromStart:
		if offset < 0 {
			return 0
		}
		return uint64(offset)
	case api.FromCurrent:
		if offset < 0 {
			back := uint64(-offset)
			if back > cur {
				return 0
			}
			return min(cur-back, r.size)
		}
		fwd := uint64(offset)
		if cur > r.size || fwd > r.size-cur {
			return r.size
		}
		return cur + fwd
	case api.FromEnd:
		return r.size
	default:
		return cur
	}
}

// System logs cmd and reports success. Nothing is executed.
func (r *Resource) System(cmd string) bool {
	r.plugin.logger.Infof("system command (%s)", cmd)
	return true
}

// Sync flushes a ReadWrite mapping to its backing file.
func (r *Resource) Sync() error {
	if !r.Live() {
		return ErrInvalidHandle
	}
	if err := internalshm.SyncRegion(r.region); err != nil {
		return newIOError(r.path, err)
	}
	return nil
}

// Close unmaps the region and closes the descriptor. The resource is
// consumed; a second Close returns ErrInvalidHandle.
func (r *Resource) Close() error {
	if !r.Live() {
		return ErrInvalidHandle
	}
	err := internalshm.UnmapRegion(r.region)
	r.region = nil
	if err != nil {
		ioErr := newIOError(r.path, err)
		r.plugin.logger.Warnf("release shared memory %s: %v", r.path, err)
		return ioErr
	}
	r.plugin.logger.Infof("disconnected from shared memory: %s", r.path)
	return nil
}
