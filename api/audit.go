// Package api defines public API contracts for plugin-qshm.
package api

// Audit records host-level events such as opens, closes and system commands.
type Audit interface {
	LogEvent(event string, details map[string]interface{}) error
}

// NopAudit discards every event.
type NopAudit struct{}

func (NopAudit) LogEvent(string, map[string]interface{}) error { return nil }
