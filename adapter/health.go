// Package adapter provides adapters for plugin-qshm integration with external systems.
package adapter

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/srediag/plugin-qshm/api"
)

// DefaultShmDir is where emulators usually create their shared memory files.
const DefaultShmDir = "/dev/shm"

// NewHealthHandler returns an http.Handler serving /live and /ready.
// Liveness delegates to h; readiness checks that the filesystem holding
// shared memory files at shmDir is mounted.
func NewHealthHandler(h api.Health, shmDir string) healthcheck.Handler {
	if shmDir == "" {
		shmDir = DefaultShmDir
	}
	handler := healthcheck.NewHandler()
	handler.AddLivenessCheck("descriptors", h.Liveness)
	handler.AddReadinessCheck("shm-filesystem", ShmFilesystemCheck(shmDir))
	return handler
}

// ShmFilesystemCheck fails when dir is not on a usable filesystem.
func ShmFilesystemCheck(dir string) healthcheck.Check {
	return func() error {
		usage, err := disk.Usage(dir)
		if err != nil {
			return fmt.Errorf("shm filesystem %s: %w", dir, err)
		}
		if usage.Total == 0 {
			return fmt.Errorf("shm filesystem %s has no capacity", dir)
		}
		return nil
	}
}
