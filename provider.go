package legtrace

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Batch limits keep memory bounded while an exporter is unreachable.
const (
	maxQueueSize       = 100
	maxExportBatchSize = 10
	batchTimeout       = 500 * time.Millisecond
	exportTimeout      = 30 * time.Second
)

// ProviderOption configures NewProvider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	exporter sdktrace.SpanExporter
	logger   *zap.Logger
	clock    clockz.Clock
	metrics  *Metrics
	lookups  []Lookup
	syncer   bool
}

// WithExporter replaces the exporter chosen from TraceOptions.
func WithExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(c *providerConfig) {
		c.exporter = exp
	}
}

// WithSyncExport exports each span as it ends instead of batching.
// Meant for tests and short-lived tools.
func WithSyncExport() ProviderOption {
	return func(c *providerConfig) {
		c.syncer = true
	}
}

// WithProviderLogger sets the logger given to tracers and backend diagnostics.
func WithProviderLogger(logger *zap.Logger) ProviderOption {
	return func(c *providerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProviderClock sets the clock used for span timestamps.
func WithProviderClock(clock clockz.Clock) ProviderOption {
	return func(c *providerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLookups sets the carrier lookup order of the provider's propagator.
func WithLookups(lookups ...Lookup) ProviderOption {
	return func(c *providerConfig) {
		c.lookups = lookups
	}
}

// WithProviderMetrics records span lifecycle counters for every tracer the provider hands out.
func WithProviderMetrics(m *Metrics) ProviderOption {
	return func(c *providerConfig) {
		c.metrics = m
	}
}

// Provider owns the tracing pipeline for one service.
//
// Lifecycle: build it once at startup with NewProvider, call Register before
// any extract or inject, and Shutdown on exit.
type Provider struct {
	opts       TraceOptions
	provider   trace.TracerProvider
	sdk        *sdktrace.TracerProvider
	ids        *idGenerator
	propagator *Propagator
	logger     *zap.Logger
	clock      clockz.Clock
	metrics    *Metrics
	registered atomic.Bool
	shutdown   atomic.Bool
}

// NewProvider builds the pipeline described by opts. When opts.Enabled is false
// the provider hands out inert spans and never exports.
func NewProvider(ctx context.Context, opts TraceOptions, options ...ProviderOption) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace options: %w", err)
	}

	cfg := providerConfig{
		logger: zap.NewNop(),
		clock:  clockz.RealClock,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	p := &Provider{
		opts:       opts,
		propagator: NewPropagator(cfg.lookups...),
		logger:     cfg.logger,
		clock:      cfg.clock,
		metrics:    cfg.metrics,
	}

	if !opts.Enabled {
		p.logger.Info("tracing disabled", zap.String("service", opts.ServiceName))
		p.provider = noop.NewTracerProvider()
		return p, nil
	}

	exp := cfg.exporter
	if exp == nil {
		var err error
		if exp, err = newExporter(ctx, opts); err != nil {
			return nil, err
		}
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.Version),
		),
	)
	if err != nil {
		// Non-fatal, fall back to an empty resource.
		p.logger.Warn("trace resource creation failed", zap.Error(err))
		res = resource.Empty()
	}

	var processor sdktrace.SpanProcessor
	if cfg.syncer {
		processor = sdktrace.NewSimpleSpanProcessor(exp)
	} else {
		processor = sdktrace.NewBatchSpanProcessor(exp,
			sdktrace.WithMaxQueueSize(maxQueueSize),
			sdktrace.WithMaxExportBatchSize(maxExportBatchSize),
			sdktrace.WithBatchTimeout(batchTimeout),
			sdktrace.WithExportTimeout(exportTimeout),
		)
	}

	p.ids = newIDGenerator(runtime.NumCPU()*100, p.clock)
	p.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(p.ids),
	)
	p.provider = p.sdk

	p.logger.Info("tracing enabled",
		zap.String("service", opts.ServiceName),
		zap.String("version", opts.Version),
		zap.String("exporter", string(opts.Exporter())),
	)
	return p, nil
}

// Register installs the provider and its propagator process-wide, along with
// backend diagnostics at the configured log level. Calls after the first are no-ops.
func (p *Provider) Register() {
	if !p.registered.CompareAndSwap(false, true) {
		return
	}
	otel.SetTracerProvider(p.provider)
	otel.SetTextMapPropagator(p.propagator)
	if p.sdk != nil {
		installDiagnostics(p.logger, p.opts.LogLevel)
	}
}

// Tracer returns a tracer bound to the provider's service name and version.
func (p *Provider) Tracer() *Tracer {
	return NewTracer(
		p.provider.Tracer(p.opts.ServiceName, trace.WithInstrumentationVersion(p.opts.Version)),
		WithLogger(p.logger),
		WithPropagator(p.propagator),
		WithClock(p.clock),
		WithMetrics(p.metrics),
	)
}

// Propagator returns the propagator registered by Register.
func (p *Provider) Propagator() *Propagator {
	return p.propagator
}

// Enabled reports whether spans are recorded and exported.
func (p *Provider) Enabled() bool {
	return p.opts.Enabled
}

// Name returns the configured service name.
func (p *Provider) Name() string {
	return p.opts.ServiceName
}

// Options returns a copy of the options the provider was built with.
func (p *Provider) Options() TraceOptions {
	return p.opts
}

// ForceFlush exports all ended spans that are still queued.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the pipeline. Safe to call more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil || !p.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	defer p.ids.Close()

	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
