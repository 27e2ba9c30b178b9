package legtrace

import (
	"context"
	"fmt"
	"net"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// jaegerOTLPPort is the OTLP/gRPC port of a Jaeger collector.
const jaegerOTLPPort = "4317"

// newExporter builds the exporter chosen by opts.Exporter.
// Jaeger is reached over OTLP, which it ingests natively.
func newExporter(ctx context.Context, opts TraceOptions) (sdktrace.SpanExporter, error) {
	switch opts.Exporter() {
	case ExporterJaeger:
		if opts.JaegerEndpoint != "" {
			exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.JaegerEndpoint))
			if err != nil {
				return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
			}
			return exp, nil
		}
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(jaegerAddress(opts.JaegerHost)),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
		}
		return exp, nil

	case ExporterZipkin:
		exp, err := zipkin.New(opts.ZipkinURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create zipkin exporter: %w", err)
		}
		return exp, nil

	default:
		var httpOpts []otlptracehttp.Option
		if opts.CollectorURL != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpointURL(opts.CollectorURL))
		}
		exp, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		return exp, nil
	}
}

// jaegerAddress appends the OTLP port when host carries none.
func jaegerAddress(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, jaegerOTLPPort)
}
