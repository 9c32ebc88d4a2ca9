package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ExpensesCreated         uint64
	ExpensesUpdated         uint64
	ExpensesDeleted         uint64
	ExpensesListed          uint64
	AggregateQueries        map[string]uint64
	SnapshotsPublished      map[string]uint64
	SnapshotsPersisted      map[string]uint64
	SnapshotBatchCount      uint64
	SnapshotBatchTotalSize  uint64
	SnapshotBatchDurationNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	expensesCreated         uint64
	expensesUpdated         uint64
	expensesDeleted         uint64
	expensesListed          uint64
	snapshotBatchCount      uint64
	snapshotBatchTotalSize  uint64
	snapshotBatchDurationNs int64

	mu                 sync.Mutex
	aggregateQueries   map[string]uint64
	snapshotsPublished map[string]uint64
	snapshotsPersisted map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		aggregateQueries:   make(map[string]uint64),
		snapshotsPublished: make(map[string]uint64),
		snapshotsPersisted: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ExpensesCreated:         atomic.LoadUint64(&m.expensesCreated),
		ExpensesUpdated:         atomic.LoadUint64(&m.expensesUpdated),
		ExpensesDeleted:         atomic.LoadUint64(&m.expensesDeleted),
		ExpensesListed:          atomic.LoadUint64(&m.expensesListed),
		AggregateQueries:        copyCounts(m.aggregateQueries),
		SnapshotsPublished:      copyCounts(m.snapshotsPublished),
		SnapshotsPersisted:      copyCounts(m.snapshotsPersisted),
		SnapshotBatchCount:      atomic.LoadUint64(&m.snapshotBatchCount),
		SnapshotBatchTotalSize:  atomic.LoadUint64(&m.snapshotBatchTotalSize),
		SnapshotBatchDurationNs: atomic.LoadInt64(&m.snapshotBatchDurationNs),
	}
}

// IncExpenseCreated increments the created counter.
func (m *InMemoryRecorder) IncExpenseCreated() {
	atomic.AddUint64(&m.expensesCreated, 1)
}

// IncExpenseUpdated increments the updated counter.
func (m *InMemoryRecorder) IncExpenseUpdated() {
	atomic.AddUint64(&m.expensesUpdated, 1)
}

// IncExpenseDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncExpenseDeleted() {
	atomic.AddUint64(&m.expensesDeleted, 1)
}

// IncExpenseListed increments the list-query counter.
func (m *InMemoryRecorder) IncExpenseListed() {
	atomic.AddUint64(&m.expensesListed, 1)
}

// IncAggregateQuery counts an aggregation query by result source.
func (m *InMemoryRecorder) IncAggregateQuery(source string) {
	m.mu.Lock()
	m.aggregateQueries[source]++
	m.mu.Unlock()
}

// IncSnapshotPublished counts a snapshot publish outcome.
func (m *InMemoryRecorder) IncSnapshotPublished(status string) {
	m.mu.Lock()
	m.snapshotsPublished[status]++
	m.mu.Unlock()
}

// IncSnapshotPersisted counts a snapshot persistence outcome.
func (m *InMemoryRecorder) IncSnapshotPersisted(status string) {
	m.mu.Lock()
	m.snapshotsPersisted[status]++
	m.mu.Unlock()
}

// ObserveSnapshotBatchSize records the size of a processed batch.
func (m *InMemoryRecorder) ObserveSnapshotBatchSize(size int) {
	atomic.AddUint64(&m.snapshotBatchCount, 1)
	atomic.AddUint64(&m.snapshotBatchTotalSize, uint64(size))
}

// ObserveSnapshotBatchDuration records batch processing time.
func (m *InMemoryRecorder) ObserveSnapshotBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.snapshotBatchDurationNs, duration.Nanoseconds())
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
