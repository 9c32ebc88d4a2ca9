package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncExpenseCreated is a no-op.
func (n *NoopRecorder) IncExpenseCreated() {}

// IncExpenseUpdated is a no-op.
func (n *NoopRecorder) IncExpenseUpdated() {}

// IncExpenseDeleted is a no-op.
func (n *NoopRecorder) IncExpenseDeleted() {}

// IncExpenseListed is a no-op.
func (n *NoopRecorder) IncExpenseListed() {}

// IncAggregateQuery is a no-op.
func (n *NoopRecorder) IncAggregateQuery(source string) {}

// IncSnapshotPublished is a no-op.
func (n *NoopRecorder) IncSnapshotPublished(status string) {}

// IncSnapshotPersisted is a no-op.
func (n *NoopRecorder) IncSnapshotPersisted(status string) {}

// ObserveSnapshotBatchSize is a no-op.
func (n *NoopRecorder) ObserveSnapshotBatchSize(size int) {}

// ObserveSnapshotBatchDuration is a no-op.
func (n *NoopRecorder) ObserveSnapshotBatchDuration(duration time.Duration) {}
