// Command legtrace inspects and exercises call-leg trace propagation.
//
//	legtrace derive <call-id>   print the ids and headers derived from a call id
//	legtrace emit <call-id>     send a root and child span through the configured exporter
//
// emit reads its options from LEGTRACE_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/zoobzio/legtrace"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "legtrace",
		Usage: "call-leg trace propagation tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"LEGTRACE_CLI_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "derive",
				Usage:     "print the trace context derived from a call id",
				ArgsUsage: "<call-id>",
				Action: func(c *cli.Context) error {
					return derive(c.App.Writer, c.Args().First())
				},
			},
			{
				Name:      "emit",
				Usage:     "export a root and child span for a call id",
				ArgsUsage: "<call-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "legtrace-emit", Usage: "root span name"},
					&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "flush timeout"},
				},
				Action: func(c *cli.Context) error {
					logger, err := legtrace.NewLogger(c.String("log-level"), false)
					if err != nil {
						return fmt.Errorf("invalid log level: %w", err)
					}
					defer func() { _ = logger.Sync() }()

					opts, err := legtrace.LoadOptions(legtrace.DefaultEnvPrefix)
					if err != nil {
						return err
					}
					return emit(c.Context, logger, opts, c.Args().First(), c.String("name"), c.Duration("timeout"))
				},
			},
		},
	}
}

var (
	errMissingCallID = errors.New("a call id is required")
	errZeroSpanID    = errors.New("call id yields an all-zero span id")
)

func derive(w io.Writer, callID string) error {
	if callID == "" {
		return errMissingCallID
	}

	traceID, err := legtrace.DeriveTraceID(callID)
	if err != nil {
		return fmt.Errorf("derive %q: %w", callID, err)
	}
	spanID := legtrace.DeriveSpanID(traceID)
	if !spanID.IsValid() {
		return fmt.Errorf("derive %q: %w", callID, errZeroSpanID)
	}

	fmt.Fprintf(w, "traceId: %s\n", traceID)
	fmt.Fprintf(w, "spanId:  %s\n", spanID)
	fmt.Fprintf(w, "b3:      %s-%s-1\n", traceID, spanID)
	headers := map[string]string{
		legtrace.TraceIDHeader: traceID.String(),
		legtrace.SpanIDHeader:  spanID.String(),
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, headers[k])
	}
	return nil
}

func emit(ctx context.Context, logger *zap.Logger, opts legtrace.TraceOptions, callID, name string, timeout time.Duration) error {
	if callID == "" {
		return errMissingCallID
	}

	provider, err := legtrace.NewProvider(ctx, opts, legtrace.WithProviderLogger(logger))
	if err != nil {
		return err
	}
	provider.Register()

	tracer := provider.Tracer()
	root := tracer.StartCallSpan(ctx, name, callID, attribute.String("call.id", callID))
	child := root.StartChildSpan("emit.child")
	child.End()
	root.End()

	b3, _ := root.TracingPropagation(legtrace.EncodingB3)
	logger.Info("spans emitted",
		zap.String("trace_id", root.TraceID()),
		zap.String("b3", b3),
		zap.Bool("enabled", provider.Enabled()),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return provider.Shutdown(shutdownCtx)
}
