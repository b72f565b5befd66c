// Package api defines public API contracts for plugin-qshm.
package api

// Health reports whether the component is still able to serve its handles.
type Health interface {
	Liveness() error
}
