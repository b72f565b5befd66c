package registry

import (
	"errors"
	"io"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/plugin-qshm/api"
)

const (
	defaultNamespace = "qshm"
)

var metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// Config holds registry creation parameters.
type Config struct {
	// Namespace prefixes every prometheus metric name.
	Namespace string
	// Registerer receives the registry metrics; nil disables registration.
	Registerer prometheus.Registerer
	// Audit receives open, close and system events; nil discards them.
	Audit api.Audit
	// LogOutput is the diagnostic sink, os.Stderr when nil.
	LogOutput io.Writer
}

// DefaultConfig returns a Config registering metrics on the default prometheus registerer.
func DefaultConfig() Config {
	return Config{
		Namespace:  defaultNamespace,
		Registerer: prometheus.DefaultRegisterer,
		Audit:      api.NopAudit{},
	}
}

// VerifyConfig checks that cfg can build a Registry.
func VerifyConfig(cfg Config) error {
	if cfg.Namespace == "" {
		return errors.New("registry: namespace must not be empty")
	}
	if !metricNameRE.MatchString(cfg.Namespace) {
		return errors.New("registry: namespace is not a valid metric name prefix")
	}
	return nil
}
