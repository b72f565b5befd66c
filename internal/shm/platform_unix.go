//go:build unix

package shm

import (
	"errors"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// MapRegion opens opts.Path, sizes it with fstat and maps the whole file
// MAP_SHARED. Failures are *os.SyscallError naming the failing call; the
// descriptor is closed on every failure path.
func MapRegion(opts MapOptions) (*MappedRegion, error) {
	flags, prot := unix.O_RDONLY, unix.PROT_READ
	if opts.Writable {
		flags, prot = unix.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	fd, err := unix.Open(opts.Path, flags|unix.O_CLOEXEC, opts.Perm)
	if err != nil {
		return nil, os.NewSyscallError("open", err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("fstat", err)
	}
	size := int64(st.Size)
	if size < 0 || uint64(size) > math.MaxInt {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("fstat", unix.EFBIG)
	}
	// mmap rejects a zero length with EINVAL, which is reported as is.
	data, err := unix.Mmap(fd, 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("mmap", err)
	}
	return &MappedRegion{
		Data:     data,
		Fd:       fd,
		Size:     uint64(size),
		Writable: opts.Writable,
	}, nil
}

// UnmapRegion unmaps the region and then closes its descriptor. The region
// must not be used afterwards.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil {
		return nil
	}
	var errs []error
	if err := unix.Munmap(region.Data); err != nil {
		errs = append(errs, os.NewSyscallError("munmap", err))
	}
	if err := unix.Close(region.Fd); err != nil {
		errs = append(errs, os.NewSyscallError("close", err))
	}
	region.Data = nil
	region.Fd = -1
	return errors.Join(errs...)
}

// SyncRegion flushes a writable mapping to its backing file.
func SyncRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil || !region.Writable {
		return nil
	}
	if err := unix.Msync(region.Data, unix.MS_SYNC); err != nil {
		return os.NewSyscallError("msync", err)
	}
	return nil
}
