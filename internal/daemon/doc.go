// Package daemon assembles the orchestrator, metrics store, quarantine
// writer, and HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances from working the same inbox.
package daemon
