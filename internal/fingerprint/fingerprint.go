package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound reports that the fingerprinted path no longer exists. Callers
// treat this as the trigger for the gone transition, not as an I/O failure.
var ErrNotFound = errors.New("fingerprint: path not found")

var audioExtensions = map[string]struct{}{
	".mp3": {},
	".m4a": {},
	".m4b": {},
	".wma": {},
}

// IsAudioFile reports whether the file name carries a recognized audio extension.
func IsAudioFile(name string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Compute returns a deterministic fingerprint of the audio content layout
// under path: a digest over the sorted "relpath|size" entries of every
// non-hidden audio file. Byte contents are not read; a partially written
// file changes size between scans, which is what the stability window
// watches for.
func Compute(path string) (string, error) {
	entries, err := manifest(path)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(strings.Join(entries, ":")))
	return hex.EncodeToString(digest[:]), nil
}

// Recheck recomputes the fingerprint and reports whether it differs from
// prevHash. It never mutates anything; on change the caller is expected to
// stamp its own hash-updated timestamp.
func Recheck(path, prevHash string) (string, bool, error) {
	newHash, err := Compute(path)
	if err != nil {
		return "", false, err
	}
	return newHash, newHash != prevHash, nil
}

// IsStable reports whether the fingerprint has been unchanged long enough.
func IsStable(hashUpdatedAt time.Time, window time.Duration, now time.Time) bool {
	return now.Sub(hashUpdatedAt) >= window
}

// AudioSize returns the total bytes of audio files under path.
func AudioSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if IsAudioFile(info.Name()) {
			return info.Size(), nil
		}
		return 0, nil
	}

	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || !IsAudioFile(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", path, err)
	}
	return total, nil
}

func manifest(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if !IsAudioFile(info.Name()) {
			return nil, nil
		}
		return []string{fmt.Sprintf("%s|%d", info.Name(), info.Size())}, nil
	}

	var entries []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// The tree can vanish mid-walk when a book is pulled from
			// the inbox; surface that as not-found.
			if errors.Is(walkErr, fs.ErrNotExist) && p == path {
				return ErrNotFound
			}
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !IsAudioFile(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		entries = append(entries, fmt.Sprintf("%s|%d", filepath.ToSlash(rel), fi.Size()))
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i]) < strings.ToLower(entries[j])
	})
	return entries, nil
}
