package legtrace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Record is an ended span as seen by a Collector.
//
//nolint:govet // Field order follows span identity first
type Record struct {
	TraceID       string
	SpanID        string
	ParentID      string
	Name          string
	Kind          string
	StatusCode    string
	StatusMessage string
	Tags          map[string]string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	ParentRemote  bool
}

// Collector is an in-memory span exporter that buffers ended spans up to a
// fixed capacity. Spans beyond capacity, or exported after Shutdown, are
// dropped and counted.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	records      []Record
	capacity     int
	droppedCount atomic.Int64
	mu           sync.Mutex
	closed       atomic.Bool
}

var _ sdktrace.SpanExporter = (*Collector)(nil)

// NewCollector creates a collector holding at most capacity records.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = 1
	}
	return &Collector{
		capacity: capacity,
		records:  make([]Record, 0, min(capacity, 8)),
	}
}

// ExportSpans implements sdktrace.SpanExporter.
func (c *Collector) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		c.droppedCount.Add(int64(len(spans)))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range spans {
		if len(c.records) >= c.capacity {
			c.droppedCount.Add(1)
			continue
		}
		c.records = append(c.records, toRecord(s))
	}
	return nil
}

// Shutdown stops the collector from accepting spans. Buffered records stay exportable.
func (c *Collector) Shutdown(context.Context) error {
	c.closed.Store(true)
	return nil
}

// Export returns all buffered records and clears the buffer.
// The returned slice is safe to modify without affecting the collector.
func (c *Collector) Export() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) == 0 {
		return nil
	}
	result := c.records
	c.records = make([]Record, 0, min(c.capacity, 8))
	return result
}

// Count returns the number of buffered records.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// DroppedCount returns the number of spans dropped because the collector was full or closed.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// Reset clears buffered records and the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	c.droppedCount.Store(0)
}

func toRecord(s sdktrace.ReadOnlySpan) Record {
	r := Record{
		TraceID:       s.SpanContext().TraceID().String(),
		SpanID:        s.SpanContext().SpanID().String(),
		Name:          s.Name(),
		Kind:          s.SpanKind().String(),
		StatusCode:    s.Status().Code.String(),
		StatusMessage: s.Status().Description,
		StartTime:     s.StartTime(),
		EndTime:       s.EndTime(),
		Duration:      s.EndTime().Sub(s.StartTime()),
		ParentRemote:  s.Parent().IsRemote(),
	}
	if s.Parent().HasSpanID() {
		r.ParentID = s.Parent().SpanID().String()
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		r.Tags = make(map[string]string, len(attrs))
		for _, kv := range attrs {
			k, v := attributeToStringPair(kv)
			r.Tags[k] = v
		}
	}
	return r
}
