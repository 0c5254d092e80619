package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/registry"
)

var commandContext = exec.CommandContext

// M4BTool converts a book folder into a single m4b file by shelling out to
// m4b-tool merge. Standalone files already in m4b form are copied through.
type M4BTool struct {
	binary    string
	extraArgs []string
	outputDir string
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures the tool wrapper.
type Option func(*M4BTool)

// WithBinary overrides the configured binary name.
func WithBinary(binary string) Option {
	return func(t *M4BTool) {
		if binary != "" {
			t.binary = binary
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *M4BTool) { t.logger = logger }
}

// NewM4BTool builds the executor from configuration.
func NewM4BTool(cfg *config.Config, opts ...Option) *M4BTool {
	t := &M4BTool{
		binary:    cfg.Convert.Tool,
		extraArgs: append([]string(nil), cfg.Convert.ExtraArgs...),
		outputDir: cfg.Paths.OutputDir,
		timeout:   time.Duration(cfg.Convert.TimeoutSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "converter")
	return t
}

// Run executes one conversion attempt for the job.
func (t *M4BTool) Run(ctx context.Context, job *registry.Job) (Outcome, error) {
	start := time.Now()
	outputPath := t.outputPath(job)

	info, err := os.Stat(job.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Pulled from the inbox mid-tick. Report a normal failure so
			// the gone check on the next tick can clean up.
			return Outcome{Reason: "input vanished before conversion started", DurationSeconds: elapsedSeconds(start)}, nil
		}
		return Outcome{}, fmt.Errorf("stat input %s: %w", job.Path, err)
	}

	if !info.IsDir() && strings.EqualFold(filepath.Ext(job.Path), ".m4b") {
		return t.copyThrough(job.Path, outputPath, start)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := []string{"merge", job.Path, "--output-file", outputPath, "--no-interaction"}
	args = append(args, t.extraArgs...)

	t.logger.Info("starting conversion",
		logging.String(logging.FieldJobKey, job.Key),
		logging.String("tool", t.binary),
		logging.String("output", outputPath),
	)

	var output bytes.Buffer
	cmd := commandContext(runCtx, t.binary, args...) //nolint:gosec
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	duration := elapsedSeconds(start)

	switch {
	case runErr == nil:
		size, err := outputSize(outputPath)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, DurationSeconds: duration, SizeBytes: size}, nil
	case errors.Is(runErr, exec.ErrNotFound):
		return Outcome{}, fmt.Errorf("conversion tool %s not found: %w", t.binary, runErr)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		reason := fmt.Sprintf("conversion timeout exceeded after %s", t.timeout)
		return Outcome{Reason: reason, DurationSeconds: duration}, nil
	case ctx.Err() != nil:
		// Daemon shutdown, not a property of the job.
		return Outcome{}, fmt.Errorf("conversion interrupted: %w", ctx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			reason := failureReason(output.String(), exitErr.ExitCode())
			return Outcome{
				Reason:             reason,
				DurationSeconds:    duration,
				LikelyCorruptInput: looksCorrupt(output.String()),
			}, nil
		}
		return Outcome{}, fmt.Errorf("run %s: %w", t.binary, runErr)
	}
}

func (t *M4BTool) outputPath(job *registry.Job) string {
	base := filepath.Base(job.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(t.outputDir, stem+".m4b")
}

func (t *M4BTool) copyThrough(src, dst string, start time.Time) (Outcome, error) {
	size, err := fileutil.CopyFileVerified(src, dst)
	if err != nil {
		return Outcome{}, fmt.Errorf("copy %s: %w", src, err)
	}
	return Outcome{Success: true, DurationSeconds: elapsedSeconds(start), SizeBytes: size}, nil
}

func outputSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat output %s: %w", path, err)
	}
	return info.Size(), nil
}

// failureReason condenses tool output into a reason string short enough to
// log and classify: the last few non-empty lines.
func failureReason(output string, exitCode int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < 4; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		tail = append([]string{line}, tail...)
	}
	if len(tail) == 0 {
		return fmt.Sprintf("conversion tool exited with code %d", exitCode)
	}
	reason := strings.Join(tail, " | ")
	if len(reason) > 500 {
		reason = reason[:500]
	}
	return fmt.Sprintf("exit %d: %s", exitCode, reason)
}

var corruptMarkers = []string{
	"invalid data found",
	"corrupt",
	"could not find codec parameters",
	"moov atom not found",
	"header missing",
}

func looksCorrupt(output string) bool {
	lowered := strings.ToLower(output)
	for _, marker := range corruptMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

var _ Executor = (*M4BTool)(nil)
