package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part1.mp3"), 100)
	writeFile(t, filepath.Join(dir, "part2.mp3"), 200)

	first, err := Compute(dir)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(dir)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not deterministic: %s vs %s", first, second)
	}
}

func TestComputeChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part1.mp3"), 100)

	before, err := Compute(dir)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// Growing a file (partial copy in flight) must move the hash.
	writeFile(t, filepath.Join(dir, "part1.mp3"), 150)
	after, changed, err := Recheck(dir, before)
	if err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if !changed || after == before {
		t.Fatal("size change not reflected in fingerprint")
	}

	// Adding a file must move it too.
	writeFile(t, filepath.Join(dir, "part2.mp3"), 10)
	_, changed, err = Recheck(dir, after)
	if err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if !changed {
		t.Fatal("new file not reflected in fingerprint")
	}
}

func TestComputeIgnoresNonAudioAndHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part1.mp3"), 100)

	base, err := Compute(dir)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	writeFile(t, filepath.Join(dir, "cover.jpg"), 5000)
	writeFile(t, filepath.Join(dir, ".DS_Store"), 12)
	writeFile(t, filepath.Join(dir, ".cache", "tmp.mp3"), 40)

	_, changed, err := Recheck(dir, base)
	if err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if changed {
		t.Fatal("non-audio and hidden files must not affect the fingerprint")
	}
}

func TestComputeStandaloneFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.m4b")
	writeFile(t, path, 300)

	hash, err := Compute(path)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty fingerprint for standalone file")
	}
}

func TestComputeMissingPath(t *testing.T) {
	_, err := Compute(filepath.Join(t.TempDir(), "vanished"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIsStable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Second

	if IsStable(now.Add(-4*time.Second), window, now) {
		t.Fatal("stable before the window elapsed")
	}
	if !IsStable(now.Add(-5*time.Second), window, now) {
		t.Fatal("boundary should be inclusive")
	}
	if !IsStable(now.Add(-time.Minute), window, now) {
		t.Fatal("long-settled hash should be stable")
	}
}

func TestAudioSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), 100)
	writeFile(t, filepath.Join(dir, "sub", "b.m4a"), 50)
	writeFile(t, filepath.Join(dir, "cover.jpg"), 999)

	size, err := AudioSize(dir)
	if err != nil {
		t.Fatalf("AudioSize: %v", err)
	}
	if size != 150 {
		t.Fatalf("AudioSize = %d, want 150", size)
	}

	if _, err := AudioSize(filepath.Join(dir, "missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
