package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zoobzio/legtrace"
)

// defaultWait bounds how long tests wait for spans to arrive.
const defaultWait = 2 * time.Second

// MockCollector wraps a real collector with test utilities.
// Spans are exported synchronously as they end.
//
//nolint:govet // Field alignment optimized for test helper readability
type MockCollector struct {
	exported []legtrace.Record
	*legtrace.Collector
	t        *testing.T
	mu       sync.Mutex
}

// NewMockCollector creates a collector and a tracer that feeds it.
// The pipeline is shut down when the test ends.
func NewMockCollector(t *testing.T, service string, bufferSize int) (*legtrace.Tracer, *MockCollector) {
	t.Helper()
	collector := legtrace.NewCollector(bufferSize)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(collector))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown %s: %v", service, err)
		}
	})

	m := &MockCollector{
		Collector: collector,
		t:         t,
	}
	return legtrace.NewTracer(provider.Tracer(service)), m
}

// Export returns collected records and clears the buffer.
func (m *MockCollector) Export() []legtrace.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.Collector.Export()
	m.exported = append(m.exported, records...)
	return records
}

// GetAll returns every record seen so far without losing earlier exports.
func (m *MockCollector) GetAll() []legtrace.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.Collector.Export(); len(current) > 0 {
		m.exported = append(m.exported, current...)
	}

	all := make([]legtrace.Record, len(m.exported))
	copy(all, m.exported)
	return all
}

// WaitForSpans waits for expected number of records with timeout.
func (m *MockCollector) WaitForSpans(expected int, timeout time.Duration) []legtrace.Record {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var records []legtrace.Record
	for time.Now().Before(deadline) {
		records = append(records, m.Export()...)
		if len(records) >= expected {
			return records
		}
		<-ticker.C
	}

	m.t.Errorf("Timeout waiting for spans: expected %d, got %d", expected, len(records))
	return records
}

// AssertSpanCount verifies exact record count.
func (m *MockCollector) AssertSpanCount(expected int) {
	m.t.Helper()
	if records := m.Export(); len(records) != expected {
		m.t.Errorf("Expected %d spans, got %d", expected, len(records))
	}
}

// AssertSpanNamed returns the record with the given name.
func (m *MockCollector) AssertSpanNamed(name string) *legtrace.Record {
	m.t.Helper()
	records := m.GetAll()
	for i := range records {
		if records[i].Name == name {
			return &records[i]
		}
	}
	m.t.Errorf("Span named '%s' not found", name)
	return nil
}

// AssertParentChild verifies parent-child relationship.
func (m *MockCollector) AssertParentChild(parentName, childName string) {
	m.t.Helper()
	records := m.GetAll()
	var parent, child *legtrace.Record

	for i := range records {
		if records[i].Name == parentName {
			parent = &records[i]
		}
		if records[i].Name == childName {
			child = &records[i]
		}
	}

	if parent == nil {
		m.t.Errorf("Parent span '%s' not found", parentName)
		return
	}
	if child == nil {
		m.t.Errorf("Child span '%s' not found", childName)
		return
	}

	if child.ParentID != parent.SpanID {
		m.t.Errorf("Parent-child relationship broken: %s is not parent of %s. Child ParentID=%s, Parent SpanID=%s",
			parentName, childName, child.ParentID, parent.SpanID)
	}
	if child.TraceID != parent.TraceID {
		m.t.Errorf("Trace ID mismatch: parent=%s, child=%s", parent.TraceID, child.TraceID)
	}
}

// SpanTree represents a hierarchical view of records.
type SpanTree struct {
	Record   legtrace.Record
	Children []*SpanTree
}

// BuildSpanTree constructs a tree from a flat record list. Records whose
// parent is remote or missing become roots.
func BuildSpanTree(records []legtrace.Record) []*SpanTree {
	nodeMap := make(map[string]*SpanTree, len(records))
	roots := make([]*SpanTree, 0)

	for i := range records {
		nodeMap[records[i].SpanID] = &SpanTree{Record: records[i]}
	}

	for i := range records {
		r := records[i]
		node := nodeMap[r.SpanID]
		if parent, exists := nodeMap[r.ParentID]; exists && r.ParentID != "" {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	return roots
}

// PrintSpanTree formats span tree for debugging.
func PrintSpanTree(trees []*SpanTree) string {
	var sb strings.Builder
	for _, tree := range trees {
		printTreeNode(&sb, tree, 0)
	}
	return sb.String()
}

func printTreeNode(sb *strings.Builder, node *SpanTree, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%.2fms)\n",
		indent, node.Record.Name, node.Record.Duration.Seconds()*1000)
	for _, child := range node.Children {
		printTreeNode(sb, child, depth+1)
	}
}

// MockService simulates a downstream service receiving call legs.
// Each Handle starts a root span from the inbound carrier.
type MockService struct {
	tracer       *legtrace.Tracer
	name         string
	mu           sync.Mutex
	requestCount int
	failNext     bool
}

// NewMockService creates a simulated service.
func NewMockService(name string, tracer *legtrace.Tracer) *MockService {
	return &MockService{name: name, tracer: tracer}
}

// FailNext makes the next Handle end its span with an error.
func (m *MockService) FailNext() {
	m.mu.Lock()
	m.failNext = true
	m.mu.Unlock()
}

// Handle processes one inbound request and returns the carrier it would send
// further downstream.
func (m *MockService) Handle(carrier any, operation string) (propagation.MapCarrier, error) {
	m.mu.Lock()
	m.requestCount++
	count := m.requestCount
	fail := m.failNext
	m.failNext = false
	m.mu.Unlock()

	span := m.tracer.StartRootSpan(context.Background(), fmt.Sprintf("%s.%s", m.name, operation), carrier)
	span.SetAttributes(legtrace.AttributesFromMap(map[string]any{
		"service":    m.name,
		"operation":  operation,
		"request_id": count,
	})...)

	out := propagation.MapCarrier{}
	span.Inject(out)

	if fail {
		span.EndWithError("simulated failure")
		return out, fmt.Errorf("%s: simulated failure", m.name)
	}
	span.End()
	return out, nil
}

// Requests returns how many requests the service handled.
func (m *MockService) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// SpanMatcher provides fluent assertions for records.
type SpanMatcher struct {
	t      *testing.T
	record *legtrace.Record
}

// NewSpanMatcher creates a matcher for record assertions.
func NewSpanMatcher(t *testing.T, record *legtrace.Record) *SpanMatcher {
	return &SpanMatcher{t: t, record: record}
}

// HasTag verifies tag exists with value.
func (m *SpanMatcher) HasTag(key, value string) *SpanMatcher {
	if m.record == nil {
		return m
	}
	if actual, exists := m.record.Tags[key]; !exists {
		m.t.Errorf("Span %s missing tag '%s'", m.record.Name, key)
	} else if actual != value {
		m.t.Errorf("Span %s tag '%s': expected '%s', got '%s'",
			m.record.Name, key, value, actual)
	}
	return m
}

// HasParent verifies parent relationship.
func (m *SpanMatcher) HasParent(parentID string) *SpanMatcher {
	if m.record == nil {
		return m
	}
	if m.record.ParentID != parentID {
		m.t.Errorf("Span %s wrong parent: expected %s, got %s",
			m.record.Name, parentID, m.record.ParentID)
	}
	return m
}

// InTrace verifies the trace id.
func (m *SpanMatcher) InTrace(traceID string) *SpanMatcher {
	if m.record == nil {
		return m
	}
	if m.record.TraceID != traceID {
		m.t.Errorf("Span %s wrong trace: expected %s, got %s",
			m.record.Name, traceID, m.record.TraceID)
	}
	return m
}

// HasStatus verifies the status code.
func (m *SpanMatcher) HasStatus(code string) *SpanMatcher {
	if m.record == nil {
		return m
	}
	if m.record.StatusCode != code {
		m.t.Errorf("Span %s status: expected %s, got %s",
			m.record.Name, code, m.record.StatusCode)
	}
	return m
}

// TraceAnalyzer provides trace-level assertions.
type TraceAnalyzer struct {
	records []legtrace.Record
	byID    map[string]legtrace.Record
	byName  map[string][]legtrace.Record
	trees   []*SpanTree
}

// NewTraceAnalyzer creates an analyzer for a set of records.
func NewTraceAnalyzer(records []legtrace.Record) *TraceAnalyzer {
	a := &TraceAnalyzer{
		records: records,
		byID:    make(map[string]legtrace.Record),
		byName:  make(map[string][]legtrace.Record),
	}

	for i := range records {
		r := records[i]
		a.byID[r.SpanID] = r
		a.byName[r.Name] = append(a.byName[r.Name], r)
	}

	a.trees = BuildSpanTree(records)
	return a
}

// GetSpan retrieves a record by span id.
func (a *TraceAnalyzer) GetSpan(spanID string) (legtrace.Record, bool) {
	r, exists := a.byID[spanID]
	return r, exists
}

// GetSpansByName retrieves all records with given name.
func (a *TraceAnalyzer) GetSpansByName(name string) []legtrace.Record {
	return a.byName[name]
}

// CountSpans returns total record count.
func (a *TraceAnalyzer) CountSpans() int {
	return len(a.records)
}

// CountTrees returns number of root records.
func (a *TraceAnalyzer) CountTrees() int {
	return len(a.trees)
}

// TraceIDs returns the distinct trace ids seen.
func (a *TraceAnalyzer) TraceIDs() map[string]int {
	ids := make(map[string]int)
	for i := range a.records {
		ids[a.records[i].TraceID]++
	}
	return ids
}

// VerifyChain checks if records form a valid parent-child chain.
func (a *TraceAnalyzer) VerifyChain(names ...string) error {
	if len(names) < 2 {
		return fmt.Errorf("chain requires at least 2 spans")
	}

	var prev *legtrace.Record
	for i, name := range names {
		records := a.GetSpansByName(name)
		if len(records) == 0 {
			return fmt.Errorf("span '%s' not found", name)
		}

		r := records[0]
		if i > 0 && prev != nil {
			if r.ParentID != prev.SpanID {
				return fmt.Errorf("broken chain: %s is not child of %s", name, names[i-1])
			}
			if r.TraceID != prev.TraceID {
				return fmt.Errorf("broken chain: %s left trace %s", name, prev.TraceID)
			}
		}

		prev = &r
	}

	return nil
}
