package legtrace

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Span wraps a backend span together with the context that holds it.
// Root and child spans share this type; only the constructor differs.
//
// A Span moves from active to ended exactly once. End, EndWithError and
// repeated calls after that are logged no-ops.
type Span struct {
	span   trace.Span
	ctx    context.Context
	tracer *Tracer
	logger *zap.Logger
	start  time.Time
	name   string
	root   bool
	ended  atomic.Bool
}

// Name returns the span name.
func (s *Span) Name() string {
	return s.name
}

// IsRoot reports whether the span was started from an inbound carrier.
func (s *Span) IsRoot() bool {
	return s.root
}

// Ended reports whether End has run.
func (s *Span) Ended() bool {
	return s.ended.Load()
}

// Context returns the context holding this span. Pass it to downstream work
// or to StartChildSpan callers.
func (s *Span) Context() context.Context {
	return s.ctx
}

// SpanContext returns the backend span context.
func (s *Span) SpanContext() trace.SpanContext {
	if s.span == nil {
		return trace.SpanContext{}
	}
	return s.span.SpanContext()
}

// TraceID returns the trace id as 32 hex characters.
func (s *Span) TraceID() string {
	return s.SpanContext().TraceID().String()
}

// SpanID returns the span id as 16 hex characters.
func (s *Span) SpanID() string {
	return s.SpanContext().SpanID().String()
}

// TraceFlags returns the span's trace flags.
func (s *Span) TraceFlags() trace.TraceFlags {
	return s.SpanContext().TraceFlags()
}

// SetAttributes forwards attributes to the backend span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if len(attrs) == 0 {
		return
	}
	s.logger.Debug("setting span attributes", zap.Int("count", len(attrs)))
	s.span.SetAttributes(attrs...)
}

// SetError marks the backend span status as error.
func (s *Span) SetError(message string) {
	s.span.SetStatus(codes.Error, message)
}

// End terminates the span. Only the first call reaches the backend.
func (s *Span) End() {
	if !s.ended.CompareAndSwap(false, true) {
		s.logger.Info("cannot end span that has already ended")
		s.tracer.metrics.repeatedEnd()
		return
	}
	s.logger.Debug("ending span")
	now := s.tracer.clock.Now()
	s.span.End(trace.WithTimestamp(now))
	s.tracer.metrics.ended(now.Sub(s.start))
}

// EndWithError sets an error status and ends the span.
func (s *Span) EndWithError(message string) {
	if s.ended.Load() {
		s.logger.Info("cannot end span that has already ended", zap.String("error", message))
		s.tracer.metrics.repeatedEnd()
		return
	}
	s.SetError(message)
	s.End()
}

// StartChildSpan starts a span parented to this span's context as it is now.
// The parent is not modified and may end before the child.
func (s *Span) StartChildSpan(name string, attrs ...attribute.KeyValue) *Span {
	s.logger.Debug("starting child span", zap.String("child", name))
	return s.tracer.start(s.ctx, name, false, trace.SpanKindInternal, attrs)
}

// Inject writes this span's ids into carrier.
func (s *Span) Inject(carrier propagation.TextMapCarrier) {
	s.tracer.propagator.Inject(s.ctx, carrier)
}

// TracingPropagation renders the span ids in the given encoding.
// It reports false for spans without a trace id and for unknown encodings.
func (s *Span) TracingPropagation(encoding Encoding) (string, bool) {
	sc := s.SpanContext()
	if !sc.HasTraceID() {
		return "", false
	}

	switch encoding {
	case EncodingB3:
		return sc.TraceID().String() + "-" + sc.SpanID().String() + "-1", true
	default:
		return "", false
	}
}

// SIPTracingPropagationHeaders returns X-Trace-ID and X-Span-ID for outbound SIP
// requests, or an empty map for spans without a trace id.
func (s *Span) SIPTracingPropagationHeaders() map[string]string {
	sc := s.SpanContext()
	if !sc.HasTraceID() {
		return map[string]string{}
	}
	return map[string]string{
		TraceIDHeader: sc.TraceID().String(),
		SpanIDHeader:  sc.SpanID().String(),
	}
}
