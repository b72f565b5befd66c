// Package api defines public API contracts for plugin-qshm.
package api

import "errors"

// Errors shared by every plugin so the host can route on them without
// importing plugin packages.
var (
	// ErrNotMine means the URI belongs to another plugin; it is a routing
	// signal, not a failure.
	ErrNotMine = errors.New("uri not handled by this plugin")
	// ErrOutOfBounds is returned when reading from an offset past the resource.
	ErrOutOfBounds = errors.New("offset out of bounds")
	// ErrPermissionDenied is returned for forbidden writes.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidHandle is returned for calls on a handle that was closed.
	ErrInvalidHandle = errors.New("invalid handle")
)
