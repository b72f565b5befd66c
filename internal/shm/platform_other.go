//go:build !unix

package shm

import (
	"errors"
	"fmt"
)

// MapRegion is not available on this platform.
func MapRegion(opts MapOptions) (*MappedRegion, error) {
	return nil, fmt.Errorf("map %s: %w", opts.Path, errors.ErrUnsupported)
}

// UnmapRegion is not available on this platform.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil {
		return nil
	}
	return errors.ErrUnsupported
}

// SyncRegion is not available on this platform.
func SyncRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil {
		return nil
	}
	return errors.ErrUnsupported
}
