package legtrace

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvPrefix is the default environment variable prefix for LoadOptions.
const DefaultEnvPrefix = "LEGTRACE"

// ExporterKind names the exporter a Provider sends spans to.
type ExporterKind string

const (
	ExporterJaeger ExporterKind = "jaeger"
	ExporterZipkin ExporterKind = "zipkin"
	ExporterOTLP   ExporterKind = "otlp"
)

// TraceOptions configures a Provider. A Provider keeps its own copy.
type TraceOptions struct {
	ServiceName    string `envconfig:"SERVICE_NAME" default:"legtrace"`
	Version        string `envconfig:"VERSION"`
	Enabled        bool   `envconfig:"ENABLED" default:"false"`
	JaegerHost     string `envconfig:"JAEGER_HOST"`
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"`
	ZipkinURL      string `envconfig:"ZIPKIN_URL"`
	CollectorURL   string `envconfig:"COLLECTOR_URL"`
	// LogLevel sets backend diagnostic verbosity: warn, info, debug or trace.
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

var errMissingServiceName = errors.New("service name is required when tracing is enabled")

// LoadOptions loads options from environment variables, e.g. LEGTRACE_ZIPKIN_URL.
func LoadOptions(prefix string) (TraceOptions, error) {
	var opts TraceOptions
	if err := envconfig.Process(prefix, &opts); err != nil {
		return TraceOptions{}, fmt.Errorf("failed to load trace options: %w", err)
	}
	return opts, nil
}

// Validate checks the options that matter when tracing is enabled.
func (o TraceOptions) Validate() error {
	if !o.Enabled {
		return nil
	}
	if strings.TrimSpace(o.ServiceName) == "" {
		return errMissingServiceName
	}
	for _, endpoint := range []struct{ name, raw string }{
		{"jaeger endpoint", o.JaegerEndpoint},
		{"zipkin url", o.ZipkinURL},
		{"collector url", o.CollectorURL},
	} {
		name, raw := endpoint.name, endpoint.raw
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q: scheme and host are required", name, raw)
		}
	}
	return nil
}

// Exporter applies the selection policy: Jaeger when a Jaeger host or endpoint
// is set, else Zipkin when a Zipkin URL is set, else the OTLP collector.
func (o TraceOptions) Exporter() ExporterKind {
	switch {
	case o.JaegerHost != "" || o.JaegerEndpoint != "":
		return ExporterJaeger
	case o.ZipkinURL != "":
		return ExporterZipkin
	default:
		return ExporterOTLP
	}
}
