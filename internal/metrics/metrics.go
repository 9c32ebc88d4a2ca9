// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Expense CRUD metrics
	IncExpenseCreated()
	IncExpenseUpdated()
	IncExpenseDeleted()
	IncExpenseListed()

	// Aggregation metrics
	IncAggregateQuery(source string) // source: "store" or "cache"

	// Snapshot pipeline metrics
	IncSnapshotPublished(status string) // status: "success" or "dropped"
	IncSnapshotPersisted(status string) // status: "success", "failed", "dead_lettered"
	ObserveSnapshotBatchSize(size int)
	ObserveSnapshotBatchDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
