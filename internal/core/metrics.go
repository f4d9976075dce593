package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// App registry
	RecordAppCreated(success bool)
	RecordAppDeleted(success bool)
	RecordIDCollision(entity string)

	// Binding
	RecordBind(result string, duration time.Duration)
	RecordSecretAuth(result string)

	// Tokens
	RecordTokenIssued(kind string)
	RecordTokenVerified(kind, result string)

	// Frequency ranking
	RecordScoreRefresh(updated int, duration time.Duration)

	// Collaborators
	RecordObjectStoreCall(operation string, success bool, duration time.Duration)
	RecordDatabaseQueryError(operation string)
}
