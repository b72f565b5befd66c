// Package shm contains platform-specific helpers for mapping shared memory backed files.
package shm

// MappedRegion represents a memory-mapped shared region together with the
// descriptor it was mapped from. Both are released by UnmapRegion.
type MappedRegion struct {
	Data     []byte
	Fd       int
	Size     uint64
	Writable bool
}

// MapOptions defines options for mapping an existing shared memory file.
type MapOptions struct {
	// Path of the shared-memory-backed file, e.g. /dev/shm/ivshmem.
	Path string
	// Writable opens O_RDWR and maps PROT_READ|PROT_WRITE, otherwise read only.
	Writable bool
	// Perm is passed through to open(2); it only matters to the OS when creating.
	Perm uint32
}

// Function implementations are provided in platform-specific files (platform_unix.go, platform_other.go).
