// Package preflight validates the runtime environment before the daemon
// starts accepting work.
package preflight
