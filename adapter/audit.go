// Package adapter provides adapters for plugin-qshm integration with external systems.
package adapter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/pkg/audit"
)

var _ api.Audit = (*AuditWriter)(nil)

// AuditWriter writes each audit event as one line to an external sink such
// as a log file or stdout.
type AuditWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewAuditWriter(out io.Writer) *AuditWriter {
	return &AuditWriter{out: out}
}

// LogEvent writes the event immediately.
func (a *AuditWriter) LogEvent(event string, details map[string]interface{}) error {
	line := audit.Event{Time: time.Now(), Name: event, Details: details}.String()
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintln(a.out, line)
	return err
}
