package quarantine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"bindery/internal/logging"
	"bindery/internal/registry"
)

const recordSuffix = ".failed.txt"

// Writer persists one human-readable record per terminally failed job under
// the quarantine directory. Records are plain text so an operator can read
// them with nothing but cat.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at the quarantine directory.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "quarantine"),
	}
}

// Write stores the failure record, replacing any previous record for the
// same job.
func (w *Writer) Write(_ context.Context, record registry.QuarantineRecord) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}

	path := w.recordPath(record.JobKey)
	var b strings.Builder
	fmt.Fprintf(&b, "job: %s\n", record.JobKey)
	fmt.Fprintf(&b, "path: %s\n", record.Path)
	fmt.Fprintf(&b, "failed_at: %s\n", record.FailedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "classification: %s\n", record.Classification)
	fmt.Fprintf(&b, "attempts: %d/%d\n", record.RetryCount, record.MaxRetries)
	fmt.Fprintf(&b, "reason: %s\n", sanitizeLine(record.Reason))
	fmt.Fprintf(&b, "recovery: %s\n", sanitizeLine(record.RecoveryHint))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write quarantine record %s: %w", path, err)
	}
	w.logger.Info("quarantine record written",
		logging.String(logging.FieldJobKey, record.JobKey),
		logging.String("record", path),
	)
	return nil
}

// Remove deletes the record for a job, if present. Used when a fixed job
// leaves the failed state.
func (w *Writer) Remove(jobKey string) error {
	err := os.Remove(w.recordPath(jobKey))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove quarantine record for %s: %w", jobKey, err)
	}
	return nil
}

// Record is a parsed quarantine entry.
type Record struct {
	JobKey         string
	Path           string
	FailedAt       time.Time
	Classification string
	RetryCount     int
	MaxRetries     int
	Reason         string
	RecoveryHint   string
}

// Scan reads all quarantine records, sorted by job key. A missing quarantine
// directory yields an empty result.
func Scan(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read quarantine dir %s: %w", dir, err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		record, err := parseRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].JobKey < records[j].JobKey })
	return records, nil
}

func (w *Writer) recordPath(jobKey string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(jobKey)
	return filepath.Join(w.dir, safe+recordSuffix)
}

func sanitizeLine(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, "\r", " "), "\n", " ")
}

func parseRecord(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("open quarantine record %s: %w", path, err)
	}
	defer f.Close()

	var record Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "job":
			record.JobKey = value
		case "path":
			record.Path = value
		case "failed_at":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				record.FailedAt = ts
			}
		case "classification":
			record.Classification = value
		case "attempts":
			if count, max, ok := strings.Cut(value, "/"); ok {
				record.RetryCount, _ = strconv.Atoi(count)
				record.MaxRetries, _ = strconv.Atoi(max)
			}
		case "reason":
			record.Reason = value
		case "recovery":
			record.RecoveryHint = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("read quarantine record %s: %w", path, err)
	}
	return record, nil
}

var _ registry.QuarantineWriter = (*Writer)(nil)
