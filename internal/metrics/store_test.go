package metrics_test

import (
	"context"
	"testing"

	"bindery/internal/registry"
	"bindery/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	attempts := []registry.Attempt{
		{JobKey: "book-a", Outcome: registry.StatusNeedsRetry, DurationSeconds: 2.5, SizeBytes: 100, ErrorMessage: "connection timed out"},
		{JobKey: "book-a", Outcome: registry.StatusCompleted, DurationSeconds: 30, SizeBytes: 4096},
		{JobKey: "book-b", Outcome: registry.StatusFailed, DurationSeconds: 1, SizeBytes: 50, ErrorMessage: "corrupted file"},
	}
	for _, attempt := range attempts {
		if err := store.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	rows, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Newest first.
	if rows[0].JobKey != "book-b" || rows[0].Outcome != string(registry.StatusFailed) {
		t.Fatalf("unexpected newest row: %+v", rows[0])
	}
	if rows[0].ErrorMessage != "corrupted file" {
		t.Fatalf("ErrorMessage = %q", rows[0].ErrorMessage)
	}
	if rows[1].ErrorMessage != "" {
		t.Fatalf("successful attempt must have empty error message, got %q", rows[1].ErrorMessage)
	}
	if rows[0].RecordedAt.IsZero() {
		t.Fatal("RecordedAt not populated")
	}
}

func TestRecentLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.RecordAttempt(ctx, registry.Attempt{JobKey: "book", Outcome: registry.StatusCompleted}); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	rows, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.TotalAttempts != 0 || empty.SuccessRate != 0 {
		t.Fatalf("empty stats = %+v", empty)
	}

	seed := []registry.Attempt{
		{JobKey: "a", Outcome: registry.StatusCompleted, DurationSeconds: 10, SizeBytes: 1000},
		{JobKey: "b", Outcome: registry.StatusCompleted, DurationSeconds: 20, SizeBytes: 2000},
		{JobKey: "c", Outcome: registry.StatusNeedsRetry, DurationSeconds: 5, SizeBytes: 500, ErrorMessage: "timeout"},
		{JobKey: "c", Outcome: registry.StatusFailed, DurationSeconds: 5, SizeBytes: 500, ErrorMessage: "corrupt"},
	}
	for _, attempt := range seed {
		if err := store.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalAttempts != 4 || stats.Completed != 2 || stats.Retried != 1 || stats.FailedTerminally != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("SuccessRate = %f, want 0.5", stats.SuccessRate)
	}
	if stats.TotalDurationSeconds != 40 {
		t.Fatalf("TotalDurationSeconds = %f, want 40", stats.TotalDurationSeconds)
	}
	// Only successful conversions count toward produced output.
	if stats.TotalOutputBytes != 3000 {
		t.Fatalf("TotalOutputBytes = %d, want 3000", stats.TotalOutputBytes)
	}
}
