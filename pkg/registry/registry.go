// Package registry is the host side of plugin-qshm: it composes I/O plugins,
// routes URIs to them and keeps the cursor of every open descriptor.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/internal/debug"
)

var (
	ErrNoPlugin          = errors.New("registry: no plugin can open uri")
	ErrDuplicatePlugin   = errors.New("registry: plugin already registered")
	ErrPluginInit        = errors.New("registry: plugin init failed")
	ErrUnknownDescriptor = errors.New("registry: unknown descriptor")
)

var _ api.Health = (*Registry)(nil)

// Registry routes open requests to plugins and owns the resulting descriptors.
type Registry struct {
	mu      sync.RWMutex
	plugins []api.IOPlugin

	descs  cmap.ConcurrentMap[uint32, *Descriptor]
	nextID atomic.Uint32

	audit   api.Audit
	metrics *metrics
	logger  *debug.Logger
}

// New creates a Registry and registers plugins in order.
func New(cfg Config, plugins ...api.IOPlugin) (*Registry, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Audit == nil {
		cfg.Audit = api.NopAudit{}
	}
	m := newMetrics(cfg.Namespace)
	if err := m.register(cfg.Registerer); err != nil {
		return nil, fmt.Errorf("registry: register metrics: %w", err)
	}
	r := &Registry{
		descs:   cmap.NewWithCustomShardingFunction[uint32, *Descriptor](func(id uint32) uint32 { return id }),
		audit:   cfg.Audit,
		metrics: m,
		logger:  debug.NewLogger("registry", cfg.LogOutput),
	}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register initializes p and makes it available to Open.
func (r *Registry) Register(p api.IOPlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.plugins {
		if q.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name())
		}
	}
	if !p.Init() {
		return fmt.Errorf("%w: %s", ErrPluginInit, p.Name())
	}
	r.plugins = append(r.plugins, p)
	r.logger.Debugf("registered plugin %s", p.Name())
	return nil
}

// Plugins returns the registered plugin names in registration order.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		names = append(names, p.Name())
	}
	return names
}

func (r *Registry) snapshot() []api.IOPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]api.IOPlugin(nil), r.plugins...)
}

// Check reports whether any registered plugin claims uri.
func (r *Registry) Check(uri string) bool {
	for _, p := range r.snapshot() {
		if p.CanHandle(uri) {
			return true
		}
	}
	return false
}

// Open hands uri to the first plugin that claims it. A plugin answering
// api.ErrNotMine passes the request on to the next one.
func (r *Registry) Open(uri string, access api.AccessMode, perm uint32) (*Descriptor, error) {
	for _, p := range r.snapshot() {
		if !p.CanHandle(uri) {
			continue
		}
		h, err := p.Open(uri, access, perm)
		if errors.Is(err, api.ErrNotMine) {
			continue
		}
		if err != nil {
			r.metrics.opens.WithLabelValues(p.Name(), "error").Inc()
			r.logAudit("open_failed", map[string]interface{}{
				"plugin": p.Name(), "uri": uri, "access": access.String(), "error": err.Error(),
			})
			return nil, err
		}
		d := &Descriptor{
			reg:    r,
			id:     r.nextID.Add(1),
			uri:    uri,
			plugin: p.Name(),
			access: access,
			handle: h,
		}
		r.descs.Set(d.id, d)
		r.metrics.opens.WithLabelValues(p.Name(), "ok").Inc()
		r.metrics.open.Inc()
		r.logAudit("open", map[string]interface{}{
			"id": d.id, "plugin": p.Name(), "uri": uri, "access": access.String(), "size": h.Size(),
		})
		r.logger.Debugf("descriptor %d opened %s (%s) by %s", d.id, uri, access, p.Name())
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPlugin, uri)
}

// Get returns the open descriptor with the given id.
func (r *Registry) Get(id uint32) (*Descriptor, bool) {
	return r.descs.Get(id)
}

// Len returns the number of open descriptors.
func (r *Registry) Len() int {
	return r.descs.Count()
}

// Descriptors returns the open descriptors ordered by id.
func (r *Registry) Descriptors() []*Descriptor {
	items := r.descs.Items()
	out := make([]*Descriptor, 0, len(items))
	for _, d := range items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Close releases the descriptor with the given id.
func (r *Registry) Close(id uint32) error {
	d, ok := r.descs.Pop(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDescriptor, id)
	}
	r.metrics.open.Dec()
	err := d.handle.Close()
	details := map[string]interface{}{"id": id, "uri": d.uri}
	if err != nil {
		details["error"] = err.Error()
		r.logger.Warnf("descriptor %d close %s: %v", id, d.uri, err)
	}
	r.logAudit("close", details)
	return err
}

// CloseAll releases every open descriptor and joins their errors.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, d := range r.Descriptors() {
		if err := r.Close(d.id); err != nil && !errors.Is(err, ErrUnknownDescriptor) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Liveness fails if an open descriptor no longer owns its mapping.
func (r *Registry) Liveness() error {
	for _, d := range r.Descriptors() {
		if !d.handle.Live() {
			return fmt.Errorf("registry: descriptor %d (%s) is not live", d.id, d.uri)
		}
	}
	return nil
}

func (r *Registry) logAudit(event string, details map[string]interface{}) {
	if err := r.audit.LogEvent(event, details); err != nil {
		r.logger.Warnf("audit %s: %v", event, err)
	}
}
