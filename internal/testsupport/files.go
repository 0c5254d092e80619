package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteBook creates a book folder in the inbox with audio files of the given
// sizes and returns its path.
func WriteBook(t testing.TB, inboxDir, name string, partSizes ...int) string {
	t.Helper()
	dir := filepath.Join(inboxDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir book %s: %v", name, err)
	}
	for i, size := range partSizes {
		path := filepath.Join(dir, partName(i))
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return dir
}

// GrowBookPart appends bytes to one part of a book, simulating a copy still
// in flight.
func GrowBookPart(t testing.TB, bookDir string, part, extra int) {
	t.Helper()
	path := filepath.Join(bookDir, partName(part))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Write(make([]byte, extra)); err != nil {
		t.Fatalf("grow %s: %v", path, err)
	}
}

func partName(i int) string {
	return fmt.Sprintf("part%d.mp3", i+1)
}
