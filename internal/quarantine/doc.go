// Package quarantine persists operator-facing records for books that failed
// terminally, and reads them back for the CLI and API.
package quarantine
