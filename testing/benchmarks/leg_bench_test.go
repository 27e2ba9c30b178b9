package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zoobzio/legtrace"
)

const callID = "550e8400-e29b-41d4-a716-446655440000"

// newBenchTracer returns a tracer over an SDK pipeline that discards spans
// beyond a small buffer, so exporter cost stays out of the numbers.
func newBenchTracer(b *testing.B) *legtrace.Tracer {
	b.Helper()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(legtrace.NewCollector(1)))
	b.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return legtrace.NewTracer(tp.Tracer("bench"))
}

// BenchmarkDeriveTraceID measures call id normalization.
func BenchmarkDeriveTraceID(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		traceID, err := legtrace.DeriveTraceID(callID)
		if err != nil {
			b.Fatal(err)
		}
		_ = legtrace.DeriveSpanID(traceID)
	}
}

// BenchmarkExtract measures carrier resolution across carrier shapes.
func BenchmarkExtract(b *testing.B) {
	p := legtrace.NewPropagator()
	carriers := map[string]any{
		"explicit":   propagation.MapCarrier{legtrace.TraceIDKey: "550e8400e29b41d4a716446655440000", legtrace.SpanIDKey: "00f067aa0ba902b7"},
		"call-sid":   map[string]any{"callSid": callID},
		"locals":     map[string]any{"locals": map[string]any{"callId": callID}},
		"no-match":   map[string]string{"other": "value"},
		"invalid-id": map[string]string{legtrace.TraceIDKey: "abc123"},
	}

	for name, carrier := range carriers {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = p.ExtractFrom(ctx, carrier)
			}
		})
	}
}

// BenchmarkInject measures writing a span context into a map carrier.
func BenchmarkInject(b *testing.B) {
	tracer := newBenchTracer(b)
	span := tracer.StartCallSpan(context.Background(), "leg", callID)
	defer span.End()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		carrier := propagation.MapCarrier{}
		span.Inject(carrier)
	}
}

// BenchmarkCallLeg measures a root span from a call id plus one child.
func BenchmarkCallLeg(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	start := time.Now()

	for i := 0; i < b.N; i++ {
		root := tracer.StartCallSpan(ctx, "leg", callID)
		root.StartChildSpan("leg.dial").End()
		root.End()
	}

	elapsed := time.Since(start)
	b.ReportMetric(float64(b.N)/elapsed.Seconds(), "legs/sec")
}

// BenchmarkCallLegParallel measures call legs started from many goroutines.
func BenchmarkCallLegParallel(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			root := tracer.StartCallSpan(ctx, "leg", callID)
			root.StartChildSpan("leg.dial").End()
			root.End()
		}
	})
}

// BenchmarkFreshRoot compares fresh traces on the pooled id generator against the SDK default.
func BenchmarkFreshRoot(b *testing.B) {
	pooled, err := legtrace.NewProvider(context.Background(),
		legtrace.TraceOptions{ServiceName: "bench", Enabled: true},
		legtrace.WithExporter(legtrace.NewCollector(1)), legtrace.WithSyncExport())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = pooled.Shutdown(context.Background()) })

	tracers := map[string]*legtrace.Tracer{
		"pooled":  pooled.Tracer(),
		"default": newBenchTracer(b),
	}

	for name, tracer := range tracers {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					tracer.StartRootSpan(ctx, "fresh", nil).End()
				}
			})
		})
	}
}

// BenchmarkDisabled measures the cost of inert spans when tracing is off.
func BenchmarkDisabled(b *testing.B) {
	tracer := legtrace.NewTracer(noop.NewTracerProvider().Tracer("off"))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		root := tracer.StartCallSpan(ctx, "leg", callID)
		_ = root.SIPTracingPropagationHeaders()
		root.End()
	}
}

// BenchmarkAttributes measures attribute conversion at different sizes.
func BenchmarkAttributes(b *testing.B) {
	for _, count := range []int{1, 5, 10, 20} {
		b.Run(fmt.Sprintf("attrs-%d", count), func(b *testing.B) {
			tracer := newBenchTracer(b)
			m := make(map[string]any, count)
			for j := 0; j < count; j++ {
				m[fmt.Sprintf("key_%d", j)] = fmt.Sprintf("value_%d", j)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				span := tracer.StartCallSpan(context.Background(), "tagged", callID)
				span.SetAttributes(legtrace.AttributesFromMap(m)...)
				span.End()
			}
		})
	}
}
