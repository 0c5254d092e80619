package registry

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked book.
type Status string

const (
	// StatusNew: discovered but not yet confirmed stable.
	StatusNew Status = "new"
	// StatusStable: fingerprint unchanged for the full stability window.
	StatusStable Status = "stable"
	// StatusProcessing: handed to the converter this tick.
	StatusProcessing Status = "processing"
	// StatusCompleted: conversion succeeded. Completed jobs are removed
	// from the registry; the constant survives as the metrics outcome.
	StatusCompleted Status = "completed"
	// StatusNeedsRetry: failed with a transient error, waiting out backoff.
	StatusNeedsRetry Status = "needs_retry"
	// StatusFailed: terminal. Permanent error or retry budget exhausted.
	StatusFailed Status = "failed"
	// StatusGone: backing input disappeared from the inbox. Terminal;
	// gone jobs are garbage collected immediately.
	StatusGone Status = "gone"
)

var allStatuses = []Status{
	StatusNew,
	StatusStable,
	StatusProcessing,
	StatusCompleted,
	StatusNeedsRetry,
	StatusFailed,
	StatusGone,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job is one tracked unit of work: a book folder (or standalone audio file)
// progressing from discovery through conversion or quarantine.
type Job struct {
	Key           string
	Path          string
	Status        Status
	ContentHash   string
	HashUpdatedAt time.Time
	SizeBytes     int64

	RetryCount int
	MaxRetries int
	// IsTransientError is nil until the job has failed at least once.
	IsTransientError *bool
	FailureReason    string
	FirstFailedAt    *time.Time
	LastRetryAt      *time.Time

	DiscoveredAt time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.IsTransientError != nil {
		v := *j.IsTransientError
		cp.IsTransientError = &v
	}
	if j.FirstFailedAt != nil {
		t := *j.FirstFailedAt
		cp.FirstFailedAt = &t
	}
	if j.LastRetryAt != nil {
		t := *j.LastRetryAt
		cp.LastRetryAt = &t
	}
	return &cp
}

// IsTerminal reports whether no further automatic transitions apply.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusGone || s == StatusCompleted
}
