package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskVendorStatsReconcile rebuilds vendor order aggregates from the
	// purchase order table.
	TaskVendorStatsReconcile = "vendors:reconcile_stats"

	// TaskAuditPrune removes audit rows older than the retention window.
	TaskAuditPrune = "audit:prune"
)
