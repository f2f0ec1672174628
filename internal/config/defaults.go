package config

import (
	"errors"
	"strings"
)

// Default file extensions.
var (
	DefaultETLExtensions      = []string{".dtsx"}
	DefaultSolutionExtensions = []string{".sln"}
	DefaultSourceExtensions   = []string{".cs", ".edmx"}
)

var (
	errNoDatabases    = errors.New("at least one database root is required")
	errEmptyRoot      = errors.New("root path is empty")
	errNegativeTuning = errors.New("workers, max_depth and cache_size must not be negative")
)

// ApplyDefaults fills unset extensions with defaults and normalises them to
// lowercase with a leading dot.
func ApplyDefaults(s *Search) {
	if s == nil {
		return
	}
	if len(s.Extensions.ETL) == 0 {
		s.Extensions.ETL = DefaultETLExtensions
	}
	if len(s.Extensions.Solution) == 0 {
		s.Extensions.Solution = DefaultSolutionExtensions
	}
	if len(s.Extensions.Source) == 0 {
		s.Extensions.Source = DefaultSourceExtensions
	}
	s.Extensions.ETL = normalizeExtensions(s.Extensions.ETL)
	s.Extensions.Solution = normalizeExtensions(s.Extensions.Solution)
	s.Extensions.Source = normalizeExtensions(s.Extensions.Source)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// HasExtension reports whether name ends with one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
