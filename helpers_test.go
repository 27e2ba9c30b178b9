package legtrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Call-leg UUID used across tests and the trace id it derives to.
const (
	testCallID  = "550e8400-e29b-41d4-a716-446655440000"
	testTraceID = "550e8400e29b41d4a716446655440000"
	testSpanID  = "550e8400e29b41d4"
)

// fakeClock is the part of clockz's fake clock the tests drive.
type fakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

// testTracer bundles a tracer over a synchronous SDK pipeline.
type testTracer struct {
	*Tracer
	collector *Collector
	clock     fakeClock
	logs      *observer.ObservedLogs
}

func newTestTracer(t *testing.T, opts ...Option) *testTracer {
	t.Helper()

	collector := NewCollector(1000)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(collector))
	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	})

	core, logs := observer.New(zap.DebugLevel)
	clock := clockz.NewFakeClock()

	base := []Option{WithLogger(zap.New(core)), WithClock(clock)}
	return &testTracer{
		Tracer:    NewTracer(tp.Tracer("legtrace-test"), append(base, opts...)...),
		collector: collector,
		clock:     clock,
		logs:      logs,
	}
}

// record returns the single exported record with the given name.
func (tt *testTracer) record(t *testing.T, records []Record, name string) Record {
	t.Helper()
	var found []Record
	for _, r := range records {
		if r.Name == name {
			found = append(found, r)
		}
	}
	require.Len(t, found, 1, "expected exactly one span named %q", name)
	return found[0]
}
