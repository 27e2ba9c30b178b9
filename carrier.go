package legtrace

import (
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// Carrier keys written by Inject and read by ExplicitIDs.
const (
	TraceIDKey = "traceId"
	SpanIDKey  = "spanId"
)

// Header names used for SIP propagation.
const (
	TraceIDHeader = "X-Trace-ID"
	SpanIDHeader  = "X-Span-ID"
)

// Call correlation keys. Flat keys win over the nested locals map.
const (
	callSidKey = "callSid"
	callIDKey  = "callId"
	localsKey  = "locals"
)

// Correlation holds the raw identifiers a Lookup found in a carrier.
// TraceID may be a hyphenated call id; SpanID is optional.
type Correlation struct {
	TraceID string
	SpanID  string
}

// Lookup finds correlation data in a carrier. It reports false when the
// carrier has nothing for it, letting the next Lookup try.
type Lookup func(carrier any) (Correlation, bool)

// CallCarrier is implemented by request values that know their call leg.
type CallCarrier interface {
	CallID() string
}

// LocalsCarrier is implemented by request values that carry per-request locals.
type LocalsCarrier interface {
	Locals() map[string]any
}

// DefaultLookups returns the lookup order used when a Propagator is built without one:
// explicit trace fields, then a flat call id, then a call id nested under locals.
func DefaultLookups() []Lookup {
	return []Lookup{ExplicitIDs, CallID, LocalsCallID}
}

// ExplicitIDs reads "traceId" and the optional "spanId".
func ExplicitIDs(carrier any) (Correlation, bool) {
	traceID, ok := field(carrier, TraceIDKey)
	if !ok {
		return Correlation{}, false
	}
	spanID, _ := field(carrier, SpanIDKey)
	return Correlation{TraceID: traceID, SpanID: spanID}, true
}

// SIPHeaders reads X-Trace-ID and the optional X-Span-ID.
func SIPHeaders(carrier any) (Correlation, bool) {
	traceID, ok := field(carrier, TraceIDHeader)
	if !ok {
		return Correlation{}, false
	}
	spanID, _ := field(carrier, SpanIDHeader)
	return Correlation{TraceID: traceID, SpanID: spanID}, true
}

// CallID reads a top-level "callSid" or "callId", or asks a CallCarrier.
func CallID(carrier any) (Correlation, bool) {
	if id, ok := callID(carrier); ok {
		return Correlation{TraceID: id}, true
	}
	if c, ok := carrier.(CallCarrier); ok {
		if id := c.CallID(); id != "" {
			return Correlation{TraceID: id}, true
		}
	}
	return Correlation{}, false
}

// LocalsCallID reads the call id nested under "locals".
func LocalsCallID(carrier any) (Correlation, bool) {
	var locals map[string]any
	switch c := carrier.(type) {
	case LocalsCarrier:
		locals = c.Locals()
	case map[string]any:
		locals, _ = c[localsKey].(map[string]any)
	}
	if locals == nil {
		return Correlation{}, false
	}
	if id, ok := callID(locals); ok {
		return Correlation{TraceID: id}, true
	}
	return Correlation{}, false
}

func callID(carrier any) (string, bool) {
	if id, ok := field(carrier, callSidKey); ok {
		return id, true
	}
	return field(carrier, callIDKey)
}

// field reads a non-empty string value for key from the supported carrier shapes.
func field(carrier any, key string) (string, bool) {
	var v string
	switch c := carrier.(type) {
	case nil:
		return "", false
	case propagation.TextMapCarrier:
		v = c.Get(key)
	case map[string]string:
		v = c[key]
	case map[string]any:
		v, _ = c[key].(string)
	case http.Header:
		v = c.Get(key)
	case metadata.MD:
		if vals := c.Get(key); len(vals) > 0 {
			v = vals[0]
		}
	}
	return v, v != ""
}

// MetadataCarrier adapts gRPC metadata to propagation.TextMapCarrier.
type MetadataCarrier metadata.MD

var _ propagation.TextMapCarrier = MetadataCarrier{}

// Get returns the first value for key.
func (c MetadataCarrier) Get(key string) string {
	vals := metadata.MD(c).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Set replaces the values for key.
func (c MetadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

// Keys lists the keys stored in the carrier.
func (c MetadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
