package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bindery/internal/logging"
	"bindery/internal/retrypolicy"
)

// ErrUnknownJob reports a transition against a key the registry does not track.
var ErrUnknownJob = errors.New("registry: unknown job")

// ErrInvalidTransition reports a transition that the current status forbids.
// These are orchestration bugs, not runtime conditions.
var ErrInvalidTransition = errors.New("registry: invalid transition")

// Registry is the in-memory source of truth for every tracked job. All state
// changes go through its transition methods; callers only ever see clones.
type Registry struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	policy     retrypolicy.Policy
	metrics    MetricsSink
	quarantine QuarantineWriter
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures optional registry collaborators.
type Option func(*Registry)

// WithMetrics attaches the attempt sink.
func WithMetrics(sink MetricsSink) Option {
	return func(r *Registry) { r.metrics = sink }
}

// WithQuarantine attaches the terminal failure writer.
func WithQuarantine(writer QuarantineWriter) Option {
	return func(r *Registry) { r.quarantine = writer }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithClock overrides the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry governed by the given retry policy.
func New(policy retrypolicy.Policy, opts ...Option) *Registry {
	r := &Registry{
		jobs:   make(map[string]*Job),
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "registry")
	return r
}

// Upsert registers a discovered path or refreshes an existing job with a
// freshly computed fingerprint. A hash change restarts the stability window;
// on a failed or needs_retry job it additionally resets the entire retry
// state in the same step, so a manually fixed book re-enters the pipeline
// with a clean budget and no backoff.
func (r *Registry) Upsert(key, path, hash string, sizeBytes int64) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	job, ok := r.jobs[key]
	if !ok {
		job = &Job{
			Key:           key,
			Path:          path,
			Status:        StatusNew,
			ContentHash:   hash,
			HashUpdatedAt: now,
			SizeBytes:     sizeBytes,
			MaxRetries:    r.policy.MaxRetries,
			DiscoveredAt:  now,
			UpdatedAt:     now,
		}
		r.jobs[key] = job
		r.logger.Info("job discovered",
			logging.String(logging.FieldJobKey, key),
			logging.String("path", path),
			logging.Int64("size_bytes", sizeBytes),
		)
		return job.Clone()
	}

	job.Path = path
	if hash != job.ContentHash {
		prev := job.Status
		job.ContentHash = hash
		job.HashUpdatedAt = now
		job.SizeBytes = sizeBytes
		job.UpdatedAt = now

		switch prev {
		case StatusFailed, StatusNeedsRetry:
			// Manual fix: content changed under a failed job. Reset the
			// retry state atomically with the hash so no intermediate
			// snapshot mixes old counts with the new content.
			job.RetryCount = 0
			job.IsTransientError = nil
			job.FailureReason = ""
			job.FirstFailedAt = nil
			job.LastRetryAt = nil
			job.Status = StatusNeedsRetry
			r.logger.Info("job content changed after failure, retry state reset",
				logging.String(logging.FieldJobKey, key),
				logging.String("previous_status", string(prev)),
			)
		case StatusStable:
			// No longer settled; the window starts over.
			job.Status = StatusNew
			r.logger.Debug("stable job content changed, stability window restarted",
				logging.String(logging.FieldJobKey, key),
			)
		default:
			r.logger.Debug("job content changed",
				logging.String(logging.FieldJobKey, key),
				logging.String("status", string(job.Status)),
			)
		}
	}
	return job.Clone()
}

// MarkStable promotes a new job whose fingerprint survived the stability
// window. Any other status is left untouched.
func (r *Registry) MarkStable(key string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	if job.Status != StatusNew {
		return job.Clone(), nil
	}
	job.Status = StatusStable
	job.UpdatedAt = r.now()
	r.logger.Info("job stable",
		logging.String(logging.FieldJobKey, key),
		logging.Int64("size_bytes", job.SizeBytes),
	)
	return job.Clone(), nil
}

// MarkProcessing claims a stable or retry-eligible job for execution.
func (r *Registry) MarkProcessing(key string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	if job.Status != StatusStable && job.Status != StatusNeedsRetry {
		return nil, fmt.Errorf("%w: %s is %s, want stable or needs_retry", ErrInvalidTransition, key, job.Status)
	}
	job.Status = StatusProcessing
	job.UpdatedAt = r.now()
	return job.Clone(), nil
}

// MarkCompleted records a successful conversion and removes the job from the
// registry. The metric is recorded before removal; outputBytes is the size of
// the produced file, falling back to the input size when unknown.
func (r *Registry) MarkCompleted(ctx context.Context, key string, durationSeconds float64, outputBytes int64) error {
	r.mu.Lock()
	job, ok := r.jobs[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	if job.Status != StatusProcessing {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is %s, want processing", ErrInvalidTransition, key, job.Status)
	}
	if outputBytes <= 0 {
		outputBytes = job.SizeBytes
	}
	attempt := Attempt{
		JobKey:          key,
		Outcome:         StatusCompleted,
		DurationSeconds: durationSeconds,
		SizeBytes:       outputBytes,
	}
	delete(r.jobs, key)
	r.mu.Unlock()

	r.recordAttempt(ctx, attempt)
	r.logger.Info("job completed",
		logging.String(logging.FieldJobKey, key),
		logging.Float64("duration_seconds", durationSeconds),
		logging.Int64("size_bytes", attempt.SizeBytes),
	)
	return nil
}

// MarkFailed records a failed attempt. The retry count increments on every
// call with no shortcuts for jobs that have failed before; skipping the
// increment is how retry loops run forever. Transient failures inside the
// budget park the job in needs_retry; everything else goes terminally failed
// and produces exactly one quarantine record.
func (r *Registry) MarkFailed(ctx context.Context, key, reason string, isTransient bool, durationSeconds float64) (*Job, error) {
	r.mu.Lock()
	job, ok := r.jobs[key]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	if job.Status != StatusProcessing {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s, want processing", ErrInvalidTransition, key, job.Status)
	}

	now := r.now()
	job.RetryCount++
	job.FailureReason = reason
	transient := isTransient
	job.IsTransientError = &transient
	retryAt := now
	job.LastRetryAt = &retryAt
	if job.FirstFailedAt == nil {
		firstAt := now
		job.FirstFailedAt = &firstAt
	}
	job.UpdatedAt = now

	var record *QuarantineRecord
	if r.policy.ShouldRetry(job.RetryCount, isTransient) {
		job.Status = StatusNeedsRetry
	} else {
		job.Status = StatusFailed
		classification := "permanent"
		if isTransient {
			classification = "transient"
		}
		record = &QuarantineRecord{
			JobKey:         key,
			Path:           job.Path,
			Reason:         reason,
			Classification: classification,
			RetryCount:     job.RetryCount,
			MaxRetries:     job.MaxRetries,
			FailedAt:       now,
			RecoveryHint:   recoveryHint,
		}
	}
	attempt := Attempt{
		JobKey:          key,
		Outcome:         job.Status,
		DurationSeconds: durationSeconds,
		SizeBytes:       job.SizeBytes,
		ErrorMessage:    reason,
	}
	snapshot := job.Clone()
	r.mu.Unlock()

	r.recordAttempt(ctx, attempt)
	if record != nil {
		if err := r.quarantineWrite(ctx, *record); err != nil {
			r.logger.Warn("quarantine record write failed",
				logging.String(logging.FieldJobKey, key),
				logging.Error(err),
			)
		}
		r.logger.Error("job failed terminally",
			logging.String(logging.FieldJobKey, key),
			logging.String("reason", reason),
			logging.Bool("transient", isTransient),
			logging.Int("retry_count", snapshot.RetryCount),
			logging.Int("max_retries", snapshot.MaxRetries),
		)
	} else {
		r.logger.Warn("job failed, retry scheduled",
			logging.String(logging.FieldJobKey, key),
			logging.String("reason", reason),
			logging.Int("retry_count", snapshot.RetryCount),
			logging.Duration("backoff", r.policy.Delay(snapshot.RetryCount)),
		)
	}
	return snapshot, nil
}

// MarkGone removes a job whose backing path disappeared. Jobs currently
// processing cannot vanish from the registry's point of view; the converter
// owns them until it reports back.
func (r *Registry) MarkGone(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	if job.Status == StatusProcessing {
		return fmt.Errorf("%w: %s is processing and cannot go gone", ErrInvalidTransition, key)
	}
	delete(r.jobs, key)
	r.logger.Info("job gone",
		logging.String(logging.FieldJobKey, key),
		logging.String("last_status", string(job.Status)),
	)
	return nil
}

// Get returns a clone of the tracked job, if any.
func (r *Registry) Get(key string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[key]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// ListByStatus returns clones of all jobs in the given status, ordered by key.
func (r *Registry) ListByStatus(status Status) []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var jobs []*Job
	for _, job := range r.jobs {
		if job.Status == status {
			jobs = append(jobs, job.Clone())
		}
	}
	sortJobs(jobs)
	return jobs
}

// Snapshot returns clones of every tracked job, ordered by key.
func (r *Registry) Snapshot() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	sortJobs(jobs)
	return jobs
}

// CountByStatus returns the number of jobs per status.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Policy exposes the retry policy governing this registry.
func (r *Registry) Policy() retrypolicy.Policy {
	return r.policy
}

func (r *Registry) recordAttempt(ctx context.Context, attempt Attempt) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.RecordAttempt(ctx, attempt); err != nil {
		r.logger.Warn("metrics record failed",
			logging.String(logging.FieldJobKey, attempt.JobKey),
			logging.Error(err),
		)
	}
}

func (r *Registry) quarantineWrite(ctx context.Context, record QuarantineRecord) error {
	if r.quarantine == nil {
		return nil
	}
	return r.quarantine.Write(ctx, record)
}

func sortJobs(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Key < jobs[j].Key })
}
