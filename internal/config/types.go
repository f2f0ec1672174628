// Package config provides shared configuration types for dbrefs.
// This package is decoupled from CLI concerns and is consumed by the corpus
// indexer and the search engine.
package config

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// Search holds the locations and tuning of a reference search.
type Search struct {
	// Databases maps a logical database name to its script root.
	Databases map[string]string `koanf:"databases" yaml:"databases"`
	// ETLPath is the directory holding ETL package files (optional).
	ETLPath string `koanf:"etl_path" yaml:"etl_path,omitempty"`
	// SourcePath is the directory searched recursively for solutions (optional).
	SourcePath string `koanf:"source_path" yaml:"source_path,omitempty"`

	Extensions Extensions `koanf:"extensions" yaml:"extensions"`
	Tuning     Tuning     `koanf:"search" yaml:"search"`
}

// Extensions lists the file extensions recognised by the indexer.
type Extensions struct {
	ETL      []string `koanf:"etl" yaml:"etl"`
	Solution []string `koanf:"solution" yaml:"solution"`
	Source   []string `koanf:"source" yaml:"source"`
}

// Tuning controls traversal resources.
type Tuning struct {
	Workers   int `koanf:"workers" yaml:"workers"`     // 0 = GOMAXPROCS
	MaxDepth  int `koanf:"max_depth" yaml:"max_depth"` // 0 = unlimited
	CacheSize int `koanf:"cache_size" yaml:"cache_size"`
}

// DatabaseNames returns the configured database names in sorted order.
func (s *Search) DatabaseNames() []string {
	names := make([]string, 0, len(s.Databases))
	for name := range s.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the policy that at least one database is configured.
func (s *Search) Validate() error {
	if len(s.Databases) == 0 {
		return &core.ConfigurationError{Field: "databases", Err: errNoDatabases}
	}
	for name, root := range s.Databases {
		if strings.TrimSpace(root) == "" {
			return &core.ConfigurationError{Field: "databases." + name, Err: errEmptyRoot}
		}
	}
	if s.Tuning.Workers < 0 || s.Tuning.MaxDepth < 0 || s.Tuning.CacheSize < 0 {
		return &core.ConfigurationError{Field: "search", Err: errNegativeTuning}
	}
	return nil
}
