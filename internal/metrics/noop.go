package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// App registry
func (n *NoopMetrics) RecordAppCreated(success bool)   {}
func (n *NoopMetrics) RecordAppDeleted(success bool)   {}
func (n *NoopMetrics) RecordIDCollision(entity string) {}

// Binding
func (n *NoopMetrics) RecordBind(result string, duration time.Duration) {}
func (n *NoopMetrics) RecordSecretAuth(result string)                    {}

// Tokens
func (n *NoopMetrics) RecordTokenIssued(kind string)           {}
func (n *NoopMetrics) RecordTokenVerified(kind, result string) {}

// Frequency ranking
func (n *NoopMetrics) RecordScoreRefresh(updated int, duration time.Duration) {}

// Collaborators
func (n *NoopMetrics) RecordObjectStoreCall(
	operation string,
	success bool,
	duration time.Duration,
) {
}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
