package qshm

import (
	"io"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// Prefix is the URI scheme recognized by the plugin.
	Prefix = "qshm://"

	defaultName          = "qshm"
	instrumentationScope = "github.com/srediag/plugin-qshm/pkg/qshm"
)

// Config holds plugin creation parameters.
type Config struct {
	Name      string    // plugin name reported to the host
	LogOutput io.Writer // diagnostic sink, os.Stderr when nil
	Meter     metric.Meter
	Tracer    trace.Tracer
}

// DefaultConfig returns a Config with no-op instrumentation.
func DefaultConfig() Config {
	return Config{
		Name:   defaultName,
		Meter:  metricnoop.NewMeterProvider().Meter(instrumentationScope),
		Tracer: tracenoop.NewTracerProvider().Tracer(instrumentationScope),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Meter == nil {
		c.Meter = d.Meter
	}
	if c.Tracer == nil {
		c.Tracer = d.Tracer
	}
	return c
}
