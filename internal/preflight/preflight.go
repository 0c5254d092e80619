package preflight

import (
	"context"

	"bindery/internal/config"
	"bindery/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Quarantine directory", cfg.Paths.QuarantineDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Convert.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Convert.MinFreeGiB))
	}
	return results
}

// Passed reports whether every check succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckSystemDeps evaluates the external binaries the daemon shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "m4b-tool",
			Command:     cfg.Convert.Tool,
			Description: "Required for merging audiobooks",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Used by m4b-tool for transcoding",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     "ffprobe",
			Description: "Used by m4b-tool for media inspection",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
