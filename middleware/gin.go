// Package middleware starts legtrace root spans at HTTP and gRPC boundaries
// and propagates the active trace to downstream calls.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zoobzio/legtrace"
)

// Gin creates middleware that wraps each request in a root span resolved from
// the request headers through the tracer's propagator. The response carries
// X-Trace-ID and X-Span-ID.
//
// The default lookups read traceId/spanId and call ids, not X-Trace-ID. A
// service that should continue a trace from another Gin service's response
// headers needs a tracer built with SIPHeaders among its lookups:
//
//	legtrace.NewTracer(t, legtrace.WithPropagator(
//		legtrace.NewPropagator(append(legtrace.DefaultLookups(), legtrace.SIPHeaders)...)))
func Gin(tracer *legtrace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}

		span := tracer.StartRootSpan(c.Request.Context(), name, c.Request.Header,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.url", c.Request.URL.String()),
			attribute.String("http.host", c.Request.Host),
		)
		defer span.End()

		c.Request = c.Request.WithContext(span.Context())
		for k, v := range span.SIPTracingPropagationHeaders() {
			c.Header(k, v)
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		switch {
		case len(c.Errors) > 0:
			span.SetError(c.Errors.Last().Error())
		case status >= http.StatusInternalServerError:
			span.SetError(http.StatusText(status))
		}
	}
}
