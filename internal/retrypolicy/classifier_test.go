package retrypolicy

import "testing"

func TestClassifyTransient(t *testing.T) {
	c := NewClassifier()
	messages := []string{
		"Connection timed out while fetching cover",
		"ERROR: network is unreachable",
		"cannot allocate memory",
		"Input/output error on /inbox/book/part2.mp3",
		"resource temporarily unavailable",
		"ffmpeg appears to have hung after 200s",
		"conversion timeout exceeded",
		"could not create temp directory",
	}
	for _, msg := range messages {
		if got := c.Classify(msg); got != KindTransient {
			t.Errorf("Classify(%q) = %v, want transient", msg, got)
		}
	}
}

func TestClassifyPermanent(t *testing.T) {
	c := NewClassifier()
	messages := []string{
		"invalid format: not an MPEG audio stream",
		"corrupted file detected in part 3",
		"unsupported codec: amr_nb",
		"no audio streams found",
		"permission denied: /inbox/locked",
		"multiple books found in one folder",
		"could not determine structure of nested dirs",
	}
	for _, msg := range messages {
		if got := c.Classify(msg); got != KindPermanent {
			t.Errorf("Classify(%q) = %v, want permanent", msg, got)
		}
	}
}

func TestClassifyUnknownDefaultsToPermanent(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("some entirely novel failure text"); got != KindPermanent {
		t.Fatalf("unknown message should be permanent, got %v", got)
	}
	if got := c.Classify(""); got != KindPermanent {
		t.Fatalf("empty message should be permanent, got %v", got)
	}
}

func TestPermanentPatternsWinOverTransient(t *testing.T) {
	c := NewClassifier()
	// Mentions a read error (transient table) but the corrupt-file pattern
	// is more specific and must win.
	msg := "read error: corrupted file chunk at offset 8192"
	if got := c.Classify(msg); got != KindPermanent {
		t.Fatalf("Classify(%q) = %v, want permanent", msg, got)
	}
}

func TestCustomPatternTables(t *testing.T) {
	c, err := NewClassifierWithPatterns(
		[]string{`flaky\s+widget`},
		[]string{`broken\s+widget`},
	)
	if err != nil {
		t.Fatalf("NewClassifierWithPatterns: %v", err)
	}
	if got := c.Classify("FLAKY widget exploded"); got != KindTransient {
		t.Fatalf("custom transient pattern not applied, got %v", got)
	}
	if got := c.Classify("broken widget"); got != KindPermanent {
		t.Fatalf("custom permanent pattern not applied, got %v", got)
	}
	// Default tables are not loaded alongside custom ones.
	if got := c.Classify("connection timed out"); got != KindPermanent {
		t.Fatalf("custom classifier should not know default patterns, got %v", got)
	}

	if _, err := NewClassifierWithPatterns([]string{`(`}, nil); err == nil {
		t.Fatal("expected compile error for bad pattern")
	}
}
