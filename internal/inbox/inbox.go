package inbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bindery/internal/fingerprint"
)

// Entry is one candidate book found in the inbox: either a folder holding
// audio files or a standalone audio file at the inbox root.
type Entry struct {
	// Key identifies the job: the entry's path relative to the inbox root,
	// in slash form. Keys are stable across scans as long as the entry
	// keeps its name.
	Key string
	// Path is the absolute filesystem path.
	Path string
}

// Scanner lists candidate books in the configured inbox directory.
type Scanner struct {
	root string
}

// NewScanner creates a scanner rooted at the inbox directory.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the inbox directory.
func (s *Scanner) Root() string {
	return s.root
}

// Scan returns the current candidates sorted by key. Folders count only when
// they contain at least one audio file somewhere below them; loose non-audio
// files and hidden entries are ignored. A missing or unreadable inbox is a
// system error, not an empty result.
func (s *Scanner) Scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan inbox %s: %w", s.root, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.root, name)
		if de.IsDir() {
			hasAudio, err := containsAudio(path)
			if err != nil {
				return nil, err
			}
			if !hasAudio {
				continue
			}
		} else if !fingerprint.IsAudioFile(name) {
			continue
		}
		entries = append(entries, Entry{Key: filepath.ToSlash(name), Path: path})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func containsAudio(dir string) (bool, error) {
	found := false
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Entries can vanish between the listing and the walk; treat a
			// disappearing subtree as simply not containing audio yet.
			if os.IsNotExist(walkErr) {
				return fs.SkipDir
			}
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if fingerprint.IsAudioFile(d.Name()) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", dir, err)
	}
	return found, nil
}
