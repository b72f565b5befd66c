// Package audit provides a bounded in-memory audit log for host-level events.
package audit

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/srediag/plugin-qshm/api"
)

// DefaultCapacity is the number of events kept when NewLog gets a non-positive capacity.
const DefaultCapacity = 1024

var _ api.Audit = (*Log)(nil)

// Event is one audited action.
type Event struct {
	Time    time.Time
	Name    string
	Details map[string]interface{}
}

func (e Event) String() string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(e.Time.Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(e.Name)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Details[k])
	}
	return b.String()
}

// Log keeps the most recent events; when full the oldest one is dropped.
type Log struct {
	mu       sync.Mutex
	q        *queue.Queue
	capacity int64
	dropped  atomic.Uint64
	now      func() time.Time
}

// NewLog returns a Log holding at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		q:        queue.New(int64(capacity)),
		capacity: int64(capacity),
		now:      time.Now,
	}
}

// LogEvent implements api.Audit. details is copied.
func (l *Log) LogEvent(event string, details map[string]interface{}) error {
	e := Event{Time: l.now(), Name: event, Details: make(map[string]interface{}, len(details))}
	for k, v := range details {
		e.Details[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.q.Len() >= l.capacity {
		if _, err := l.q.Get(1); err != nil {
			return err
		}
		l.dropped.Add(1)
	}
	return l.q.Put(e)
}

// Drain removes and returns every buffered event, oldest first.
func (l *Log) Drain() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.q.Len()
	if n == 0 || l.q.Disposed() {
		return nil
	}
	items, err := l.q.Get(n)
	if err != nil {
		return nil
	}
	events := make([]Event, 0, len(items))
	for _, item := range items {
		if e, ok := item.(Event); ok {
			events = append(events, e)
		}
	}
	return events
}

func (l *Log) Len() int {
	return int(l.q.Len())
}

// Dropped counts events discarded because the log was full.
func (l *Log) Dropped() uint64 {
	return l.dropped.Load()
}

// Dispose releases the log; later LogEvent calls fail with queue.ErrDisposed.
func (l *Log) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.q.Dispose()
}
