// Package converter runs the external conversion tool for one job at a time
// and reports outcomes the orchestrator can classify.
package converter
