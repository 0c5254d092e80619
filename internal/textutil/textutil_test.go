package textutil

import "testing"

func TestBookTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"the_hobbit", "The Hobbit"},
		{"dune.part.two.m4b", "Dune Part Two"},
		{"Already Nice Name", "Already Nice Name"},
		{"  spaced__out  ", "Spaced Out"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BookTitle(tt.in); got != tt.want {
			t.Errorf("BookTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel("needs_retry"); got != "Needs Retry" {
		t.Fatalf("StatusLabel = %q", got)
	}
	if got := StatusLabel("new"); got != "New" {
		t.Fatalf("StatusLabel = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`a/b:c*d?"<>|`); got != "a-b-c-d" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName("  plain  "); got != "plain" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}
