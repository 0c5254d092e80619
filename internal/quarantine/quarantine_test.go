package quarantine

import (
	"context"
	"testing"
	"time"

	"bindery/internal/registry"
)

func sampleRecord(key string) registry.QuarantineRecord {
	return registry.QuarantineRecord{
		JobKey:         key,
		Path:           "/inbox/" + key,
		Reason:         "exit 1: invalid format: not an MPEG audio stream",
		Classification: "permanent",
		RetryCount:     1,
		MaxRetries:     3,
		FailedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RecoveryHint:   "fix or replace the input files",
	}
}

func TestWriteAndScanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	if err := w.Write(context.Background(), sampleRecord("Book B")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(context.Background(), sampleRecord("Book A")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	records, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].JobKey != "Book A" || records[1].JobKey != "Book B" {
		t.Fatalf("records not sorted by key: %+v", records)
	}

	got := records[0]
	want := sampleRecord("Book A")
	if got.Path != want.Path || got.Classification != want.Classification {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.RetryCount != 1 || got.MaxRetries != 3 {
		t.Fatalf("attempts not parsed: %+v", got)
	}
	if got.Reason != want.Reason {
		t.Fatalf("Reason = %q, want %q", got.Reason, want.Reason)
	}
	if !got.FailedAt.Equal(want.FailedAt) {
		t.Fatalf("FailedAt = %s, want %s", got.FailedAt, want.FailedAt)
	}
}

func TestWriteReplacesPreviousRecord(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	first := sampleRecord("Book A")
	if err := w.Write(context.Background(), first); err != nil {
		t.Fatalf("Write: %v", err)
	}
	second := first
	second.Reason = "different failure entirely"
	second.RetryCount = 3
	if err := w.Write(context.Background(), second); err != nil {
		t.Fatalf("Write: %v", err)
	}

	records, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 after replacement", len(records))
	}
	if records[0].Reason != second.Reason || records[0].RetryCount != 3 {
		t.Fatalf("record not replaced: %+v", records[0])
	}
}

func TestWriteHandlesMultilineReason(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	record := sampleRecord("Book A")
	record.Reason = "line one\nline two\r\nline three"
	if err := w.Write(context.Background(), record); err != nil {
		t.Fatalf("Write: %v", err)
	}

	records, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Reason != "line one line two  line three" {
		t.Fatalf("Reason = %q", records[0].Reason)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	if err := w.Remove("never existed"); err != nil {
		t.Fatalf("Remove of missing record must be a no-op: %v", err)
	}

	if err := w.Write(context.Background(), sampleRecord("Book A")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Remove("Book A"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	records, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
}

func TestScanMissingDir(t *testing.T) {
	records, err := Scan(t.TempDir() + "/nope")
	if err != nil || records != nil {
		t.Fatalf("Scan missing dir = %+v, %v", records, err)
	}
}
