package legtrace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// suppressKeyType is a private type for the suppression context key.
type suppressKeyType struct{}

var suppressKey suppressKeyType

// SuppressTracing returns a context on which Inject writes nothing.
func SuppressTracing(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey, true)
}

// IsTracingSuppressed reports whether ctx was marked by SuppressTracing.
func IsTracingSuppressed(ctx context.Context) bool {
	suppressed, _ := ctx.Value(suppressKey).(bool)
	return suppressed
}

// Setter writes one key/value pair into a carrier.
type Setter func(key, value string)

// Propagator carries a trace id / span id pair across process boundaries
// using the "traceId" and "spanId" carrier fields.
// Safe for concurrent use.
type Propagator struct {
	lookups []Lookup
}

var _ propagation.TextMapPropagator = (*Propagator)(nil)

// NewPropagator creates a propagator that tries lookups in order.
// With no lookups it uses DefaultLookups.
func NewPropagator(lookups ...Lookup) *Propagator {
	if len(lookups) == 0 {
		lookups = DefaultLookups()
	}
	return &Propagator{lookups: append([]Lookup(nil), lookups...)}
}

// Fields returns the carrier keys written by Inject.
func (*Propagator) Fields() []string {
	return []string{TraceIDKey, SpanIDKey}
}

// Inject writes the span context held by ctx into carrier.
func (p *Propagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	if carrier == nil {
		return
	}
	p.InjectWith(ctx, carrier.Set)
}

// InjectWith writes the span context held by ctx through set.
// Nothing is written when ctx holds no valid span context or is suppressed.
func (*Propagator) InjectWith(ctx context.Context, set Setter) {
	if ctx == nil || set == nil {
		return
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || IsTracingSuppressed(ctx) {
		return
	}
	set(TraceIDKey, sc.TraceID().String())
	set(SpanIDKey, sc.SpanID().String())
}

// Extract implements propagation.TextMapPropagator.
func (p *Propagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return p.ExtractFrom(ctx, carrier)
}

// ExtractFrom resolves a remote span context from any supported carrier shape.
// The first lookup that finds data decides the result. When that data does not
// form a valid id pair, or nothing is found, ctx is returned unchanged.
func (p *Propagator) ExtractFrom(ctx context.Context, carrier any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, lookup := range p.lookups {
		corr, ok := lookup(carrier)
		if !ok {
			continue
		}
		sc, ok := corr.spanContext()
		if !ok {
			return ctx
		}
		return trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	return ctx
}

// spanContext converts raw correlation data into a sampled remote span context.
func (c Correlation) spanContext() (trace.SpanContext, bool) {
	traceID, err := DeriveTraceID(c.TraceID)
	if err != nil {
		return trace.SpanContext{}, false
	}

	spanID := DeriveSpanID(traceID)
	if c.SpanID != "" {
		if spanID, err = trace.SpanIDFromHex(strings.ToLower(c.SpanID)); err != nil {
			return trace.SpanContext{}, false
		}
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return sc, sc.IsValid()
}
