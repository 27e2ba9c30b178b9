package legtrace

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const (
	traceIDHexLen = 32
	spanIDHexLen  = 16
)

// ErrInvalidTraceID is returned when a correlation id cannot yield a valid trace id.
var ErrInvalidTraceID = errors.New("legtrace: correlation id does not yield a valid trace id")

// cleanHex lowercases s and drops every character that is not a hex digit.
func cleanHex(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f':
			b.WriteByte(c)
		case 'A' <= c && c <= 'F':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// DeriveTraceID maps a correlation id (typically a call-leg UUID) onto a trace id.
// Separators are stripped and the result truncated to 32 hex characters.
// Short ids are rejected rather than padded, so they never collide with the zero id.
func DeriveTraceID(correlationID string) (trace.TraceID, error) {
	cleaned := cleanHex(correlationID)
	if len(cleaned) < traceIDHexLen {
		return trace.TraceID{}, ErrInvalidTraceID
	}

	id, err := trace.TraceIDFromHex(cleaned[:traceIDHexLen])
	if err != nil {
		return trace.TraceID{}, ErrInvalidTraceID
	}
	return id, nil
}

// DeriveSpanID returns the span id made of the first 8 bytes of traceID.
// The result is invalid when those bytes are all zero.
func DeriveSpanID(traceID trace.TraceID) trace.SpanID {
	var id trace.SpanID
	copy(id[:], traceID[:len(id)])
	return id
}

// IsValidTraceID reports whether s is 32 lowercase hex characters and not all zero.
func IsValidTraceID(s string) bool {
	if len(s) != traceIDHexLen {
		return false
	}
	_, err := trace.TraceIDFromHex(s)
	return err == nil
}

// IsValidSpanID reports whether s is 16 lowercase hex characters and not all zero.
func IsValidSpanID(s string) bool {
	if len(s) != spanIDHexLen {
		return false
	}
	_, err := trace.SpanIDFromHex(s)
	return err == nil
}
