package legtrace

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/zoobzio/clockz"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// idPool keeps pre-generated ids to amortize crypto/rand overhead.
type idPool[T any] struct {
	factory func() T
	ids     chan T
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// newIDPool creates a pool with the given capacity and starts its refill goroutine.
func newIDPool[T any](capacity int, factory func() T) *idPool[T] {
	pool := &idPool[T]{
		ids:     make(chan T, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// Get retrieves an id from the pool or generates one if the pool is empty.
func (p *idPool[T]) Get() T {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

func (p *idPool[T]) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		case p.ids <- p.factory():
		}
	}
}

// Close stops the refill goroutine. Safe to call more than once.
func (p *idPool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// idGenerator is an sdktrace.IDGenerator backed by id pools.
// Fresh root spans draw from it; derived ids never pass through it.
type idGenerator struct {
	traceIDs *idPool[trace.TraceID]
	spanIDs  *idPool[trace.SpanID]
}

var _ sdktrace.IDGenerator = (*idGenerator)(nil)

func newIDGenerator(poolSize int, clock clockz.Clock) *idGenerator {
	return &idGenerator{
		traceIDs: newIDPool(poolSize, func() trace.TraceID {
			var id trace.TraceID
			for !id.IsValid() {
				if _, err := rand.Read(id[:]); err != nil {
					// Fallback to a time-based id if crypto/rand fails.
					binary.BigEndian.PutUint64(id[8:], uint64(clock.Now().UnixNano()))
					id[0] = 0x1
				}
			}
			return id
		}),
		spanIDs: newIDPool(poolSize, func() trace.SpanID {
			var id trace.SpanID
			for !id.IsValid() {
				if _, err := rand.Read(id[:]); err != nil {
					binary.BigEndian.PutUint64(id[:], uint64(clock.Now().UnixNano())|1)
				}
			}
			return id
		}),
	}
}

// NewIDs returns a new trace id and span id for a span with no parent.
func (g *idGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceIDs.Get(), g.spanIDs.Get()
}

// NewSpanID returns a span id for a span within an existing trace.
func (g *idGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return g.spanIDs.Get()
}

func (g *idGenerator) Close() {
	g.traceIDs.Close()
	g.spanIDs.Close()
}
