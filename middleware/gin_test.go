package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/legtrace"
)

const (
	testCallID  = "550e8400-e29b-41d4-a716-446655440000"
	testTraceID = "550e8400e29b41d4a716446655440000"
	testSpanID  = "550e8400e29b41d4"
)

func newTracer(t *testing.T) (*legtrace.Tracer, *legtrace.Collector) {
	t.Helper()
	collector := legtrace.NewCollector(100)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(collector))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return legtrace.NewTracer(tp.Tracer("middleware-test")), collector
}

func newRouter(tracer *legtrace.Tracer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Gin(tracer))
	return r
}

func TestGinRootSpanFromHeaders(t *testing.T) {
	tracer, collector := newTracer(t)
	r := newRouter(tracer)

	var handlerTrace string
	r.GET("/calls/:sid", func(c *gin.Context) {
		handlerTrace = trace.SpanContextFromContext(c.Request.Context()).TraceID().String()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/calls/CA123", nil)
	req.Header.Set(legtrace.TraceIDKey, testCallID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testTraceID, handlerTrace)
	assert.Equal(t, testTraceID, w.Header().Get(legtrace.TraceIDHeader))

	records := collector.Export()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "/calls/:sid", rec.Name)
	assert.Equal(t, testTraceID, rec.TraceID)
	assert.Equal(t, testSpanID, rec.ParentID)
	assert.Equal(t, rec.SpanID, w.Header().Get(legtrace.SpanIDHeader))
	assert.Equal(t, "GET", rec.Tags["http.method"])
	assert.Equal(t, "200", rec.Tags["http.status_code"])
	assert.Equal(t, "Unset", rec.StatusCode)
}

func TestGinFreshTraceWithoutHeaders(t *testing.T) {
	tracer, collector := newTracer(t)
	r := newRouter(tracer)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := collector.Export()[0]
	assert.Empty(t, rec.ParentID)
	assert.Equal(t, rec.TraceID, w.Header().Get(legtrace.TraceIDHeader))
}

func TestGinServerErrorMarksSpan(t *testing.T) {
	tracer, collector := newTracer(t)
	r := newRouter(tracer)
	r.POST("/calls", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.POST("/hangup", func(c *gin.Context) {
		_ = c.Error(errors.New("leg not found"))
		c.Status(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/calls", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/hangup", nil))

	records := collector.Export()
	require.Len(t, records, 2)

	byName := map[string]legtrace.Record{}
	for _, rec := range records {
		byName[rec.Name] = rec
	}
	assert.Equal(t, "Error", byName["/calls"].StatusCode)
	assert.Equal(t, "Bad Gateway", byName["/calls"].StatusMessage)
	assert.Equal(t, "Error", byName["/hangup"].StatusCode)
	assert.Equal(t, "leg not found", byName["/hangup"].StatusMessage)
}

func TestGinUnmatchedRouteUsesPath(t *testing.T) {
	tracer, collector := newTracer(t)
	r := newRouter(tracer)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	records := collector.Export()
	require.Len(t, records, 1)
	assert.Equal(t, "/missing", records[0].Name)
}

// Chained Gin services share a trace only when the downstream tracer reads X-Trace-ID.
func TestGinChainedServices(t *testing.T) {
	tests := []struct {
		name      string
		lookups   []legtrace.Lookup
		sameTrace bool
	}{
		{"default lookups", nil, false},
		{"with sip headers", append(legtrace.DefaultLookups(), legtrace.SIPHeaders), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream, upstreamRecords := newTracer(t)

			collector := legtrace.NewCollector(10)
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(collector))
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
			downstream := legtrace.NewTracer(tp.Tracer("downstream"),
				legtrace.WithPropagator(legtrace.NewPropagator(tt.lookups...)))

			first := newRouter(upstream)
			first.GET("/invite", func(c *gin.Context) { c.Status(http.StatusOK) })
			second := newRouter(downstream)
			second.GET("/bridge", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/invite", nil)
			req.Header.Set(legtrace.TraceIDKey, testCallID)
			w := httptest.NewRecorder()
			first.ServeHTTP(w, req)

			next := httptest.NewRequest(http.MethodGet, "/bridge", nil)
			next.Header.Set(legtrace.TraceIDHeader, w.Header().Get(legtrace.TraceIDHeader))
			next.Header.Set(legtrace.SpanIDHeader, w.Header().Get(legtrace.SpanIDHeader))
			second.ServeHTTP(httptest.NewRecorder(), next)

			up := upstreamRecords.Export()
			down := collector.Export()
			require.Len(t, up, 1)
			require.Len(t, down, 1)

			if tt.sameTrace {
				assert.Equal(t, testTraceID, down[0].TraceID)
				assert.Equal(t, up[0].SpanID, down[0].ParentID)
			} else {
				assert.NotEqual(t, testTraceID, down[0].TraceID)
				assert.Empty(t, down[0].ParentID)
			}
		})
	}
}
