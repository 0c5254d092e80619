// Package logging builds the slog loggers used across bindery and provides
// typed attribute helpers plus the console and JSON handlers. Construct
// loggers through New or NewFromConfig; components receive child loggers via
// NewComponentLogger so every line carries a component field.
package logging
