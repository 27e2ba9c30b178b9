package legtrace_test

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/propagation"

	"github.com/zoobzio/legtrace"
)

func ExampleDeriveTraceID() {
	traceID, err := legtrace.DeriveTraceID("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		panic(err)
	}
	fmt.Println(traceID)
	fmt.Println(legtrace.DeriveSpanID(traceID))
	// Output:
	// 550e8400e29b41d4a716446655440000
	// 550e8400e29b41d4
}

func ExamplePropagator_ExtractFrom() {
	p := legtrace.NewPropagator()
	webhook := map[string]any{
		"locals": map[string]any{"callSid": "550e8400-e29b-41d4-a716-446655440000"},
	}

	ctx := p.ExtractFrom(context.Background(), webhook)

	carrier := propagation.MapCarrier{}
	p.Inject(ctx, carrier)
	fmt.Println(carrier.Get(legtrace.TraceIDKey))
	fmt.Println(carrier.Get(legtrace.SpanIDKey))
	// Output:
	// 550e8400e29b41d4a716446655440000
	// 550e8400e29b41d4
}

func ExampleSpan_SIPTracingPropagationHeaders() {
	// A disabled provider still carries the call's ids downstream.
	provider, err := legtrace.NewProvider(context.Background(), legtrace.TraceOptions{ServiceName: "sbc"})
	if err != nil {
		panic(err)
	}
	defer provider.Shutdown(context.Background())

	leg := provider.Tracer().StartCallSpan(context.Background(), "inbound", "550e8400-e29b-41d4-a716-446655440000")
	defer leg.End()

	headers := leg.SIPTracingPropagationHeaders()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, headers[k])
	}

	b3, _ := leg.TracingPropagation(legtrace.EncodingB3)
	fmt.Println(b3)
	// Output:
	// X-Span-ID: 550e8400e29b41d4
	// X-Trace-ID: 550e8400e29b41d4a716446655440000
	// 550e8400e29b41d4a716446655440000-550e8400e29b41d4-1
}
