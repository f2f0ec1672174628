// Package config provides configuration management for the dbrefs CLI.
//
// This package extends the shared search configuration from internal/config
// with CLI-specific fields: where rendered pages go, the run history store
// and output formatting.
package config

import (
	"fmt"

	sharedcfg "github.com/leapstack-labs/dbrefs/internal/config"
)

// Search is an alias for the shared search configuration.
type Search = sharedcfg.Search

// Config holds all CLI configuration options.
type Config struct {
	Search `koanf:",squash"`

	OutputDir    string `koanf:"output_dir"`
	TemplatesDir string `koanf:"templates_dir"`
	StatePath    string `koanf:"state_path"` // empty disables run history
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutputDir = "."
	DefaultStateFile = ".dbrefs/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

var outputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks the CLI-level options. Search locations are validated by
// the corpus indexer when a search actually runs, so commands such as
// history work without any database configured.
func (c *Config) Validate() error {
	for _, f := range outputFormats {
		if c.OutputFormat == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (want one of %v)", c.OutputFormat, outputFormats)
}

// HistoryEnabled reports whether runs are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.StatePath != ""
}
