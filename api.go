// Package legtrace provides trace-context propagation and span lifecycle for call legs.
//
// legtrace sits on top of OpenTelemetry. It maps call correlation data (a SIP
// call-leg UUID, or trace fields supplied by an upstream hop) onto a valid
// trace id / span id pair, moves that pair across carriers, and wraps backend
// spans so that every span in a call tree ends exactly once.
//
// Core Components:
//   - Codec: DeriveTraceID / DeriveSpanID turn a correlation id into otel ids.
//   - Propagator: injects and extracts {traceId, spanId} on any carrier.
//   - Tracer: starts root spans from inbound carriers.
//   - Span: one type for root and child spans, with safe re-entrant End.
//   - Provider: builds the SDK pipeline and registers it process-wide.
//   - Metrics: optional Prometheus counters for span starts, ends and repeated ends.
//
// Basic Usage:
//
//	opts, _ := legtrace.LoadOptions(legtrace.DefaultEnvPrefix)
//	provider, err := legtrace.NewProvider(ctx, opts)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//	provider.Register()
//
//	tracer := provider.Tracer()
//	root := tracer.StartCallSpan(ctx, "inbound-call", callID)
//	defer root.End()
//
//	child := root.StartChildSpan("dial")
//	child.SetAttributes(attribute.String("sip.uri", uri))
//	child.End()
//
// Failure Model:
//
// Propagation never fails the caller. Malformed or missing ids make Extract
// return its input context and Inject write nothing. Ending a span twice is
// logged and otherwise ignored.
//
// Thread Safety:
//
// Tracer and Propagator are safe for concurrent use. A Span is meant to be
// owned by one call flow; End is nonetheless safe to race.
package legtrace

// Encoding selects the compact propagation string format of a Span.
type Encoding string

// EncodingB3 renders "<traceId>-<spanId>-1".
const EncodingB3 Encoding = "b3"
