package retrypolicy

import (
	"time"

	"bindery/internal/config"
)

// BackoffDelay computes the wait imposed before retry number retryCount.
// retryCount is 1-indexed: the first failure waits base, the second 2*base,
// doubling until max. Values below 1 are treated as 1.
func BackoffDelay(retryCount int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if retryCount < 1 {
		retryCount = 1
	}
	delay := base
	for i := 1; i < retryCount; i++ {
		if max > 0 && delay >= max {
			return max
		}
		delay *= 2
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// ShouldRetry reports whether another automatic attempt is allowed.
func ShouldRetry(retryCount, maxRetries int, isTransient, transientEnabled bool) bool {
	if !transientEnabled {
		return false
	}
	if !isTransient {
		return false
	}
	return retryCount < maxRetries
}

// CanRetryNow reports whether the backoff window for the current retryCount
// has elapsed, and if not, how long remains. A zero lastRetryAt means no
// backoff applies (e.g. after a manual-fix reset). The boundary is inclusive:
// a job becomes eligible exactly when the delay has fully elapsed.
func CanRetryNow(lastRetryAt time.Time, retryCount int, base, max time.Duration, now time.Time) (bool, time.Duration) {
	if lastRetryAt.IsZero() {
		return true, 0
	}
	required := BackoffDelay(retryCount, base, max)
	elapsed := now.Sub(lastRetryAt)
	if elapsed >= required {
		return true, 0
	}
	return false, required - elapsed
}

// Policy bundles the configured retry parameters.
type Policy struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	TransientEnabled bool
}

// FromConfig converts the config section into a Policy.
func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{
		MaxRetries:       cfg.Retry.MaxRetries,
		BaseDelay:        time.Duration(cfg.Retry.BaseDelay) * time.Second,
		MaxDelay:         time.Duration(cfg.Retry.MaxDelay) * time.Second,
		TransientEnabled: cfg.Retry.TransientEnabled,
	}
}

// ShouldRetry applies the policy to a failure with the given attempt count.
func (p Policy) ShouldRetry(retryCount int, isTransient bool) bool {
	return ShouldRetry(retryCount, p.MaxRetries, isTransient, p.TransientEnabled)
}

// CanRetryNow applies the policy's backoff schedule. A nil lastRetryAt is
// treated as eligible immediately.
func (p Policy) CanRetryNow(lastRetryAt *time.Time, retryCount int, now time.Time) (bool, time.Duration) {
	if lastRetryAt == nil {
		return true, 0
	}
	return CanRetryNow(*lastRetryAt, retryCount, p.BaseDelay, p.MaxDelay, now)
}

// Delay exposes the backoff schedule for a given attempt count.
func (p Policy) Delay(retryCount int) time.Duration {
	return BackoffDelay(retryCount, p.BaseDelay, p.MaxDelay)
}
