package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/gofrs/flock"

	"bindery/internal/api"
	"bindery/internal/config"
	"bindery/internal/converter"
	"bindery/internal/inbox"
	"bindery/internal/logging"
	"bindery/internal/metrics"
	"bindery/internal/orchestrator"
	"bindery/internal/quarantine"
	"bindery/internal/registry"
	"bindery/internal/retrypolicy"
)

// Daemon ties the orchestrator, metrics store, and API server into a single
// lifecycle and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store *metrics.Store
	reg   *registry.Registry
	orch  *orchestrator.Orchestrator
	api   *apiServer

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs the daemon and all of its collaborators from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := metrics.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open metrics store: %w", err)
	}

	writer := quarantine.NewWriter(cfg.Paths.QuarantineDir, logger)
	reg := registry.New(retrypolicy.FromConfig(cfg),
		registry.WithMetrics(store),
		registry.WithQuarantine(writer),
		registry.WithLogger(logger),
	)
	executor := converter.NewM4BTool(cfg, converter.WithLogger(logger))
	orch := orchestrator.New(cfg, reg, inbox.NewScanner(cfg.Paths.InboxDir), executor,
		orchestrator.WithLogger(logger),
	)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		reg:      reg,
		orch:     orch,
		lockPath: filepath.Join(cfg.Paths.LogDir, "bindery.lock"),
		pidPath:  filepath.Join(cfg.Paths.LogDir, "bindery.pid"),
	}
	d.lock = flock.New(d.lockPath)
	d.api = newAPIServer(cfg, api.Deps{
		Config:       cfg,
		Registry:     reg,
		Orchestrator: orch,
		Metrics:      store,
		Logger:       logger,
	}, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the orchestrator and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bindery daemon instance is already running")
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.orch.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.orch.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return fmt.Errorf("start api server: %w", err)
		}
	}

	d.running.Store(true)
	d.logger.Info("bindery daemon started",
		logging.String("lock", d.lockPath),
		logging.String("inbox", d.cfg.Paths.InboxDir),
	)
	return nil
}

// Stop shuts down background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.orch.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bindery daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon lifecycle is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Registry exposes the job registry for CLI inspection.
func (d *Daemon) Registry() *registry.Registry {
	return d.reg
}

// Orchestrator exposes the tick loop for CLI inspection.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}

// APIAddr returns the bound API address, if the server is running.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// LockFilePath returns the path of the single-instance lock file.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
