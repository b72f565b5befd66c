package qshm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/internal/debug"
	internalshm "github.com/srediag/plugin-qshm/internal/shm"
)

var _ api.IOPlugin = (*Plugin)(nil)

// Plugin opens qshm:// URIs. It keeps no per-resource state, so one Plugin
// can serve any number of resources.
type Plugin struct {
	name         string
	logger       *debug.Logger
	tracer       trace.Tracer
	readBytes    metric.Int64Counter
	writtenBytes metric.Int64Counter
}

// New creates a Plugin from cfg; zero fields take DefaultConfig values.
func New(cfg Config) (*Plugin, error) {
	cfg = cfg.withDefaults()
	readBytes, err := cfg.Meter.Int64Counter("qshm.read.bytes",
		metric.WithDescription("Bytes copied out of shared memory regions."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("qshm: create read counter: %w", err)
	}
	writtenBytes, err := cfg.Meter.Int64Counter("qshm.write.bytes",
		metric.WithDescription("Bytes copied into shared memory regions."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("qshm: create write counter: %w", err)
	}
	return &Plugin{
		name:         cfg.Name,
		logger:       debug.NewLogger(cfg.Name, cfg.LogOutput),
		tracer:       cfg.Tracer,
		readBytes:    readBytes,
		writtenBytes: writtenBytes,
	}, nil
}

func (p *Plugin) Name() string { return p.name }

// Init always succeeds; the plugin has no process-wide state to prepare.
func (p *Plugin) Init() bool {
	p.logger.Debugf("plugin %s initialized", p.name)
	return true
}

// CanHandle reports whether uri starts with qshm://.
func CanHandle(uri string) bool {
	return strings.HasPrefix(uri, Prefix)
}

func (p *Plugin) CanHandle(uri string) bool {
	return CanHandle(uri)
}

// Open implements api.IOPlugin.
func (p *Plugin) Open(uri string, access api.AccessMode, perm uint32) (api.Handle, error) {
	r, err := p.OpenResource(context.Background(), uri, access, perm)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenResource maps the file named by uri. ctx only parents the trace span;
// an open in progress cannot be cancelled.
func (p *Plugin) OpenResource(ctx context.Context, uri string, access api.AccessMode, perm uint32) (*Resource, error) {
	if !CanHandle(uri) {
		return nil, ErrNotMine
	}
	if access != api.ReadOnly && access != api.ReadWrite {
		return nil, fmt.Errorf("qshm: unknown access mode %d", int(access))
	}
	path := uri[len(Prefix):]

	_, span := p.tracer.Start(ctx, "qshm.open", trace.WithAttributes(
		attribute.String("qshm.path", path),
		attribute.String("qshm.access", access.String()),
	))
	defer span.End()

	region, err := internalshm.MapRegion(internalshm.MapOptions{
		Path:     path,
		Writable: access == api.ReadWrite,
		Perm:     perm,
	})
	if err != nil {
		ioErr := newIOError(path, err)
		p.logOpenFailure(ioErr)
		span.RecordError(ioErr)
		span.SetStatus(codes.Error, ioErr.Error())
		return nil, ioErr
	}
	span.SetAttributes(attribute.Int64("qshm.size", int64(region.Size)))

	p.logger.Infof("connected to shared memory: %s (%d bytes, %s)", path, region.Size, access)
	return &Resource{
		plugin: p,
		region: region,
		path:   path,
		size:   region.Size,
		access: access,
	}, nil
}

func (p *Plugin) logOpenFailure(e *IOError) {
	switch e.Op {
	case "open":
		p.logger.Errorf("failed to connect to shared memory %s (%d)", e.Path, int(e.Errno))
	case "fstat":
		p.logger.Errorf("failed to obtain the size of shared memory %s (%d)", e.Path, int(e.Errno))
	case "mmap":
		p.logger.Errorf("failed to map shared memory %s into memory (%d)", e.Path, int(e.Errno))
	default:
		p.logger.Errorf("failed to open shared memory %s: %v", e.Path, e.Err)
	}
}

// IsNotExist reports whether err is an open failure because the backing file
// does not exist yet.
func IsNotExist(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr) && ioErr.Op == "open" && errors.Is(ioErr.Err, syscall.ENOENT)
}
