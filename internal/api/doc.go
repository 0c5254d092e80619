// Package api exposes a read-only HTTP view of the daemon: health, tracked
// jobs, quarantined books, and conversion metrics.
package api
