package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bindery/internal/quarantine"
	"bindery/internal/registry"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	for _, dir := range []string{"inbox", "output", "quarantine", "logs"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	content := fmt.Sprintf(`[paths]
inbox_dir = %q
output_dir = %q
quarantine_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`,
		filepath.Join(base, "inbox"),
		filepath.Join(base, "output"),
		filepath.Join(base, "quarantine"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "bindery.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, base
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShow(t *testing.T) {
	path, base := writeTestConfig(t)

	output, err := runCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(output, "# loaded from "+path) {
		t.Fatalf("missing source comment in output:\n%s", output)
	}
	if !strings.Contains(output, filepath.Join(base, "inbox")) {
		t.Fatalf("missing inbox path in output:\n%s", output)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path, _ := writeTestConfig(t)

	if _, err := runCommand(t, "config", "init", "--path", path); err == nil {
		t.Fatal("init must refuse to overwrite an existing config")
	}

	fresh := filepath.Join(t.TempDir(), "new", "config.toml")
	output, err := runCommand(t, "config", "init", "--path", fresh)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, fresh) {
		t.Fatalf("init output missing path:\n%s", output)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("config not written: %v", err)
	}
}

func TestFailedCommandReadsQuarantine(t *testing.T) {
	path, base := writeTestConfig(t)

	writer := quarantine.NewWriter(filepath.Join(base, "quarantine"), nil)
	record := registry.QuarantineRecord{
		JobKey:         "the_hobbit",
		Path:           filepath.Join(base, "inbox", "the_hobbit"),
		Reason:         "no audio streams found",
		Classification: "permanent",
		RetryCount:     1,
		MaxRetries:     3,
		FailedAt:       time.Now(),
		RecoveryHint:   "fix the input",
	}
	if err := writer.Write(context.Background(), record); err != nil {
		t.Fatalf("Write: %v", err)
	}

	output, err := runCommand(t, "--config", path, "failed", "--verbose")
	if err != nil {
		t.Fatalf("failed command: %v", err)
	}
	if !strings.Contains(output, "The Hobbit") {
		t.Fatalf("expected titled book name:\n%s", output)
	}
	if !strings.Contains(output, "no audio streams found") {
		t.Fatalf("expected failure reason:\n%s", output)
	}
}

func TestFailedCommandEmpty(t *testing.T) {
	path, _ := writeTestConfig(t)

	output, err := runCommand(t, "--config", path, "failed")
	if err != nil {
		t.Fatalf("failed command: %v", err)
	}
	if !strings.Contains(output, "No quarantined books.") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestQueueRejectsUnknownStatus(t *testing.T) {
	path, _ := writeTestConfig(t)

	if _, err := runCommand(t, "--config", path, "queue", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("a very long failure reason", 10); got != "a very ..." {
		t.Fatalf("truncate = %q", got)
	}
}
