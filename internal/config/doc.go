// Package config loads, validates, and defaults the TOML configuration for
// the bindery daemon and CLI. Paths are expanded and normalized at load time
// so the rest of the codebase only ever sees absolute directories.
package config
