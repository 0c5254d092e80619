// Package metrics records conversion attempt history in SQLite. It is
// strictly observational; nothing here feeds back into scheduling.
package metrics
