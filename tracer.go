package legtrace

import (
	"context"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracer starts spans on a backend tracer and resolves inbound context with a Propagator.
// Safe for concurrent use by multiple goroutines.
type Tracer struct {
	tracer     trace.Tracer
	propagator *Propagator
	logger     *zap.Logger
	clock      clockz.Clock
	metrics    *Metrics
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger attached to every span.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithPropagator sets the propagator used by StartRootSpan and Inject.
func WithPropagator(p *Propagator) Option {
	return func(t *Tracer) {
		if p != nil {
			t.propagator = p
		}
	}
}

// WithClock sets the clock used for span start and end timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithMetrics records span lifecycle counters.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracer) {
		t.metrics = m
	}
}

// NewTracer wraps a backend tracer.
func NewTracer(tracer trace.Tracer, opts ...Option) *Tracer {
	t := &Tracer{
		tracer:     tracer,
		propagator: NewPropagator(),
		logger:     zap.NewNop(),
		clock:      clockz.RealClock,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Propagator returns the tracer's propagator.
func (t *Tracer) Propagator() *Propagator {
	return t.propagator
}

// StartRootSpan starts the span for one unit of work arriving over a boundary.
// The carrier is resolved with the propagator; when it yields no usable ids the
// span parents to whatever ctx already holds, or starts a fresh trace.
func (t *Tracer) StartRootSpan(ctx context.Context, name string, carrier any, attrs ...attribute.KeyValue) *Span {
	if ctx == nil {
		ctx = context.Background()
	}
	extracted := t.propagator.ExtractFrom(ctx, carrier)
	t.metrics.extracted(extracted != ctx)
	return t.start(extracted, name, true, trace.SpanKindConsumer, attrs)
}

// StartCallSpan starts a root span whose trace id is derived from a call id.
func (t *Tracer) StartCallSpan(ctx context.Context, name, callID string, attrs ...attribute.KeyValue) *Span {
	return t.StartRootSpan(ctx, name, propagation.MapCarrier{TraceIDKey: callID}, attrs...)
}

// Inject writes the span context held by ctx into carrier.
func (t *Tracer) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	t.propagator.Inject(ctx, carrier)
}

func (t *Tracer) start(parent context.Context, name string, root bool, kind trace.SpanKind, attrs []attribute.KeyValue) *Span {
	now := t.clock.Now()
	ctx, span := t.tracer.Start(parent, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(now),
	)
	t.metrics.started(root)

	sc := span.SpanContext()
	return &Span{
		span:   span,
		ctx:    ctx,
		tracer: t,
		name:   name,
		root:   root,
		start:  now,
		logger: t.logger.With(
			zap.String("span", name),
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		),
	}
}
