package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bindery/internal/config"
	"bindery/internal/converter"
	"bindery/internal/fingerprint"
	"bindery/internal/inbox"
	"bindery/internal/logging"
	"bindery/internal/registry"
	"bindery/internal/retrypolicy"
)

// Orchestrator drives the conversion lifecycle: retry sweep, discovery,
// gone detection, stability promotion, then serial execution, once per tick.
type Orchestrator struct {
	cfg        *config.Config
	reg        *registry.Registry
	scanner    *inbox.Scanner
	executor   converter.Executor
	classifier *retrypolicy.Classifier
	policy     retrypolicy.Policy
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastTick  time.Time
	tickCount uint64
	lastError error
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithClassifier overrides the failure classifier.
func WithClassifier(classifier *retrypolicy.Classifier) Option {
	return func(o *Orchestrator) { o.classifier = classifier }
}

// New wires the orchestrator to its collaborators.
func New(cfg *config.Config, reg *registry.Registry, scanner *inbox.Scanner, executor converter.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		reg:      reg,
		scanner:  scanner,
		executor: executor,
		policy:   retrypolicy.FromConfig(cfg),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = retrypolicy.NewClassifier()
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// Start begins background ticking.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	o.mu.Unlock()

	go o.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the loop to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	pollInterval := time.Duration(o.cfg.Workflow.PollInterval) * time.Second
	errorRetry := time.Duration(o.cfg.Workflow.ErrorRetryInterval) * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := o.Tick(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, errScanFailed):
			// The inbox can blip on network mounts; back off and rescan
			// instead of taking the daemon down.
			o.setLastError(err)
			o.logger.Error("inbox scan failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the inbox directory is mounted and readable"),
			)
			if !sleepCtx(ctx, errorRetry) {
				return
			}
			continue
		default:
			// Anything else means the daemon itself cannot operate
			// (conversion tool missing, I/O trouble). Halt rather than
			// burn retry budgets on attempts that can never run.
			o.setLastError(err)
			o.logger.Error("orchestrator halted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the underlying condition and restart the daemon"),
			)
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
			return
		}

		if !sleepCtx(ctx, pollInterval) {
			return
		}
	}
}

var errScanFailed = errors.New("orchestrator: inbox scan failed")

// Tick performs one full pass of the lifecycle. Exported so tests and the
// daemon's foreground mode can drive the loop deterministically.
func (o *Orchestrator) Tick(ctx context.Context) error {
	tickID := uuid.NewString()
	logger := o.logger.With(logging.String(logging.FieldTickID, tickID))
	now := o.now()

	o.mu.Lock()
	o.lastTick = now
	o.tickCount++
	o.mu.Unlock()

	// Phase 1: retry sweep. Runs before discovery so eligibility is judged
	// against the state failures left behind, not against whatever this
	// tick's scan does to it.
	type candidate struct {
		key  string
		hash string
	}
	var retries []candidate
	for _, job := range o.reg.ListByStatus(registry.StatusNeedsRetry) {
		ok, remaining := o.policy.CanRetryNow(job.LastRetryAt, job.RetryCount, now)
		if !ok {
			logger.Debug("retry backoff pending",
				logging.String(logging.FieldJobKey, job.Key),
				logging.Duration("remaining", remaining),
			)
			continue
		}
		retries = append(retries, candidate{key: job.Key, hash: job.ContentHash})
	}

	// Phase 2: discovery.
	entries, err := o.scanner.Scan()
	if err != nil {
		return fmt.Errorf("%w: %v", errScanFailed, err)
	}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		hash, err := fingerprint.Compute(entry.Path)
		if err != nil {
			if errors.Is(err, fingerprint.ErrNotFound) {
				continue
			}
			logger.Warn("fingerprint failed, skipping entry this tick",
				logging.String(logging.FieldJobKey, entry.Key),
				logging.Error(err),
			)
			continue
		}
		size, err := fingerprint.AudioSize(entry.Path)
		if err != nil {
			size = 0
		}
		o.reg.Upsert(entry.Key, entry.Path, hash, size)
		seen[entry.Key] = struct{}{}
	}

	// Phase 3: gone detection. Jobs mid-execution are left to the converter;
	// a vanished input surfaces there as a failed attempt instead.
	for _, job := range o.reg.Snapshot() {
		if _, ok := seen[job.Key]; ok {
			continue
		}
		if job.Status == registry.StatusProcessing {
			continue
		}
		if err := o.reg.MarkGone(job.Key); err != nil {
			logger.Warn("gone transition failed",
				logging.String(logging.FieldJobKey, job.Key),
				logging.Error(err),
			)
		}
	}

	// Phase 4: stability promotion.
	window := time.Duration(o.cfg.Workflow.StabilityWindow) * time.Second
	var execKeys []string
	for _, job := range o.reg.ListByStatus(registry.StatusNew) {
		if !fingerprint.IsStable(job.HashUpdatedAt, window, now) {
			continue
		}
		if _, err := o.reg.MarkStable(job.Key); err != nil {
			logger.Warn("stable transition failed",
				logging.String(logging.FieldJobKey, job.Key),
				logging.Error(err),
			)
			continue
		}
		execKeys = append(execKeys, job.Key)
	}
	// Jobs already stable from an earlier tick (e.g. promoted right before
	// shutdown) are picked up here too.
	for _, job := range o.reg.ListByStatus(registry.StatusStable) {
		if !contains(execKeys, job.Key) {
			execKeys = append(execKeys, job.Key)
		}
	}

	// A retry candidate whose content changed during this tick's discovery
	// was reset by the registry and waits for the next sweep; everything
	// else joins the execution set.
	for _, cand := range retries {
		job, ok := o.reg.Get(cand.key)
		if !ok || job.Status != registry.StatusNeedsRetry || job.ContentHash != cand.hash {
			continue
		}
		execKeys = append(execKeys, cand.key)
	}

	sort.Strings(execKeys)

	// Phase 5: serial execution in key order.
	for _, key := range execKeys {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := o.execute(ctx, logger, key); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, key string) error {
	job, err := o.reg.MarkProcessing(key)
	if err != nil {
		logger.Warn("processing claim failed",
			logging.String(logging.FieldJobKey, key),
			logging.Error(err),
		)
		return nil
	}

	outcome, err := o.executor.Run(ctx, job)
	if err != nil {
		return fmt.Errorf("execute %s: %w", key, err)
	}
	if outcome.Success {
		if err := o.reg.MarkCompleted(ctx, key, outcome.DurationSeconds, outcome.SizeBytes); err != nil {
			return fmt.Errorf("complete %s: %w", key, err)
		}
		return nil
	}

	kind := o.classifier.Classify(outcome.Reason)
	if outcome.LikelyCorruptInput {
		kind = retrypolicy.KindPermanent
	}
	if _, err := o.reg.MarkFailed(ctx, key, outcome.Reason, kind == retrypolicy.KindTransient, outcome.DurationSeconds); err != nil {
		return fmt.Errorf("fail %s: %w", key, err)
	}
	return nil
}

// Health is a point-in-time view of the loop for the API and CLI.
type Health struct {
	Running   bool
	LastTick  time.Time
	TickCount uint64
	LastError string
}

// Health reports the loop's current condition.
func (o *Orchestrator) Health() Health {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := Health{
		Running:   o.running,
		LastTick:  o.lastTick,
		TickCount: o.tickCount,
	}
	if o.lastError != nil {
		h.LastError = o.lastError.Error()
	}
	return h
}

func (o *Orchestrator) setLastError(err error) {
	o.mu.Lock()
	o.lastError = err
	o.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
