package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/testsupport"
)

func TestRunAllPassesWithPreparedDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.MinFreeGiB = 0

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	if !Passed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}

func TestCheckDirectoryAccessFailures(t *testing.T) {
	missing := CheckDirectoryAccess("Inbox directory", filepath.Join(t.TempDir(), "nope"))
	if missing.Passed {
		t.Fatalf("missing dir must fail: %+v", missing)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	notDir := CheckDirectoryAccess("Inbox directory", file)
	if notDir.Passed {
		t.Fatalf("plain file must fail: %+v", notDir)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	ok := CheckFreeSpace("Output free space", t.TempDir(), 0)
	if !ok.Passed {
		t.Fatalf("zero requirement must pass: %+v", ok)
	}

	// No test filesystem has an exbibyte free.
	huge := CheckFreeSpace("Output free space", t.TempDir(), 1<<30)
	if huge.Passed {
		t.Fatalf("absurd requirement must fail: %+v", huge)
	}
	if huge.Detail == "" {
		t.Fatal("detail should describe free vs required space")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}
	if statuses[0].Name != "m4b-tool" || !statuses[0].Available {
		t.Fatalf("stubbed tool should be available: %+v", statuses[0])
	}
}
