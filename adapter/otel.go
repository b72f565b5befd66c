// Package adapter provides adapters for plugin-qshm integration with external systems.
package adapter

import (
	"go.opentelemetry.io/otel"

	"github.com/srediag/plugin-qshm/pkg/qshm"
)

// OTelFromGlobal returns cfg with its meter and tracer taken from the global
// OpenTelemetry providers under the given instrumentation name.
func OTelFromGlobal(cfg qshm.Config, name string) qshm.Config {
	cfg.Meter = otel.GetMeterProvider().Meter(name)
	cfg.Tracer = otel.GetTracerProvider().Tracer(name)
	return cfg
}
