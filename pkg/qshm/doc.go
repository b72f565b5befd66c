// Package qshm exposes an emulator's shared memory segment as an addressable
// byte resource.
//
// A region is named by a URI of the form qshm://<path>, where <path> is the
// file backing the segment (for QEMU ivshmem usually something under
// /dev/shm). Opening maps the whole file MAP_SHARED, so writes through a
// ReadWrite resource are seen by the emulator and by every other mapper.
//
// The cursor belongs to the caller: ReadAt, WriteAt and Seek take it
// explicitly and never keep one of their own. Calls on a single Resource
// must be serialized by the caller.
//
// Example usage:
//
//	p, err := qshm.New(qshm.DefaultConfig())
//	// ...
//	r, err := p.OpenResource(ctx, "qshm:///dev/shm/ivshmem", api.ReadWrite, 0)
//	// ...
//	defer r.Close()
//	n, err := r.ReadAt(buf, 0x1000)
package qshm
