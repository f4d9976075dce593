package metrics

import "time"

func resultLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordAppCreated records an app registration attempt
func (m *Metrics) RecordAppCreated(success bool) {
	m.AppsCreatedTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordAppDeleted records an app deletion attempt
func (m *Metrics) RecordAppDeleted(success bool) {
	m.AppsDeletedTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordIDCollision records a random identifier that had to be redrawn
func (m *Metrics) RecordIDCollision(entity string) {
	m.IDCollisionsTotal.WithLabelValues(entity).Inc()
}

// RecordBind records a bind request and its duration
func (m *Metrics) RecordBind(result string, duration time.Duration) {
	m.BindsTotal.WithLabelValues(result).Inc()
	m.BindDuration.Observe(duration.Seconds())
}

// RecordSecretAuth records the outcome of an app secret authorization
func (m *Metrics) RecordSecretAuth(result string) {
	m.SecretAuthTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued records a signed token
func (m *Metrics) RecordTokenIssued(kind string) {
	m.TokensIssuedTotal.WithLabelValues(kind).Inc()
}

// RecordTokenVerified records a token verification outcome
func (m *Metrics) RecordTokenVerified(kind, result string) {
	m.TokenVerifiedTotal.WithLabelValues(kind, result).Inc()
}

// RecordScoreRefresh records one frequency refresh run
func (m *Metrics) RecordScoreRefresh(updated int, duration time.Duration) {
	m.ScoreRefreshRowsTotal.Add(float64(updated))
	m.ScoreRefreshDuration.Observe(duration.Seconds())
}

// RecordObjectStoreCall records an object store request
func (m *Metrics) RecordObjectStoreCall(operation string, success bool, duration time.Duration) {
	m.ObjectStoreCallsTotal.WithLabelValues(operation, resultLabel(success)).Inc()
	m.ObjectStoreCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDatabaseQueryError records a database query error
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
