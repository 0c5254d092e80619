package converter

import (
	"context"
	"time"

	"bindery/internal/registry"
)

// Outcome reports how a conversion attempt ended. A failed attempt is a
// normal result, not an error; errors are reserved for conditions where the
// daemon itself can no longer operate.
type Outcome struct {
	Success         bool
	Reason          string
	DurationSeconds float64
	// SizeBytes is the size of the produced output on success.
	SizeBytes int64
	// LikelyCorruptInput marks failures where the tool output points at
	// broken source files. These are always classified permanent.
	LikelyCorruptInput bool
}

// Executor runs the conversion for one job. A non-nil error means the
// attempt could not be made at all (missing tool, shutdown, I/O trouble)
// and halts the orchestrator loop.
type Executor interface {
	Run(ctx context.Context, job *registry.Job) (Outcome, error)
}

func elapsedSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
