package registry

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/srediag/plugin-qshm/api"
)

var (
	_ io.ReadWriteSeeker = (*Descriptor)(nil)
	_ io.ReaderAt        = (*Descriptor)(nil)
	_ io.WriterAt        = (*Descriptor)(nil)
	_ io.Closer          = (*Descriptor)(nil)
)

var (
	errNegativeOffset = errors.New("registry: negative offset")
	errInvalidWhence  = errors.New("registry: invalid whence")
)

// Descriptor is an open handle plus the cursor the host keeps for it.
// A Descriptor is not safe for concurrent use.
type Descriptor struct {
	reg    *Registry
	id     uint32
	uri    string
	plugin string
	access api.AccessMode
	handle api.Handle
	off    uint64
}

func (d *Descriptor) ID() uint32             { return d.id }
func (d *Descriptor) URI() string            { return d.uri }
func (d *Descriptor) Plugin() string         { return d.plugin }
func (d *Descriptor) Access() api.AccessMode { return d.access }
func (d *Descriptor) Size() uint64           { return d.handle.Size() }
func (d *Descriptor) Handle() api.Handle     { return d.handle }

// Offset is the current cursor. It may exceed Size after an absolute seek.
func (d *Descriptor) Offset() uint64 { return d.off }

// Read reads at the cursor and advances it. A cursor at or past the end of
// the resource reads nothing and returns io.EOF.
func (d *Descriptor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := d.handle.ReadAt(p, d.off)
	if errors.Is(err, api.ErrOutOfBounds) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, err
	}
	d.off += uint64(n)
	d.reg.metrics.readBytes.Add(float64(n))
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadAt reads at off without moving the cursor. Short reads return io.EOF.
func (d *Descriptor) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	n, err := d.handle.ReadAt(p, uint64(off))
	if errors.Is(err, api.ErrOutOfBounds) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, err
	}
	d.reg.metrics.readBytes.Add(float64(n))
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes all of p at the cursor and advances it. Writes never grow
// the resource; one that does not fit fails without writing anything.
func (d *Descriptor) Write(p []byte) (int, error) {
	n, err := d.handle.WriteAt(p, d.off)
	if err != nil {
		return 0, err
	}
	d.off += uint64(n)
	d.reg.metrics.writeBytes.Add(float64(n))
	return n, nil
}

// WriteAt writes all of p at off without moving the cursor.
func (d *Descriptor) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	n, err := d.handle.WriteAt(p, uint64(off))
	if err != nil {
		return 0, err
	}
	d.reg.metrics.writeBytes.Add(float64(n))
	return n, nil
}

// Seek moves the cursor with the handle's seek rules; whence takes the io.Seek* values.
func (d *Descriptor) Seek(offset int64, whence int) (int64, error) {
	switch api.Whence(whence) {
	case api.FromStart, api.FromCurrent, api.FromEnd:
	default:
		return int64(min(d.off, math.MaxInt64)), fmt.Errorf("%w: %d", errInvalidWhence, whence)
	}
	d.off = d.handle.Seek(d.off, offset, api.Whence(whence))
	return int64(min(d.off, math.MaxInt64)), nil
}

// System forwards cmd to the handle and records it in the audit log.
func (d *Descriptor) System(cmd string) bool {
	ok := d.handle.System(cmd)
	d.reg.metrics.systemCalls.Inc()
	d.reg.logAudit("system", map[string]interface{}{"id": d.id, "uri": d.uri, "cmd": cmd, "ok": ok})
	return ok
}

// Close releases the descriptor; it must not be used afterwards.
func (d *Descriptor) Close() error {
	return d.reg.Close(d.id)
}
