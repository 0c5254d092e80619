package registry

import (
	"context"
	"time"
)

// Attempt is the observability record emitted for every finished conversion
// attempt, successful or not. Sinks stamp their own recorded-at time.
type Attempt struct {
	JobKey          string
	Outcome         Status
	DurationSeconds float64
	SizeBytes       int64
	ErrorMessage    string
}

// MetricsSink receives conversion attempt records. Sink failures are logged
// and swallowed; metrics never influence job transitions.
type MetricsSink interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// QuarantineRecord captures why a job went terminally failed, written exactly
// once per transition into the failed status.
type QuarantineRecord struct {
	JobKey         string
	Path           string
	Reason         string
	Classification string
	RetryCount     int
	MaxRetries     int
	FailedAt       time.Time
	RecoveryHint   string
}

// QuarantineWriter persists terminal failure records for operators.
type QuarantineWriter interface {
	Write(ctx context.Context, record QuarantineRecord) error
}

// recoveryHint tells an operator how to get a quarantined book moving again.
const recoveryHint = "fix or replace the input files; the changed content is picked up automatically with a fresh retry budget"
