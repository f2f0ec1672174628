package search

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

const boundary = `[^a-zA-Z0-9]`

// namePattern matches name case-insensitively when it is not embedded in a
// longer alphanumeric identifier. Text edges count as boundaries.
func namePattern(name string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)(?:^|` + boundary + `)` + regexp.QuoteMeta(name) + `(?:` + boundary + `|$)`)
}

// sourcePatterns returns the lowercase substrings that mark a reference to
// obj from application source. Kinds without source patterns return nil.
func sourcePatterns(obj *core.RefObject) []string {
	name := strings.ToLower(obj.Name)
	qualified := strings.ToLower(obj.Schema + "." + obj.Name)

	switch obj.Kind {
	case core.Table, core.View:
		return []string{
			`"` + name + `"`,
			`"` + qualified + `"`,
			"from " + name,
			"from " + qualified,
			"join " + name,
			"join " + qualified,
			"into " + name,
			"into " + qualified,
		}
	case core.StoredProcedure:
		return []string{
			`"` + name + `"`,
			`"` + qualified + `"`,
			`"` + name + " ",
			`"` + qualified + " ",
			"exec " + name + `"`,
			"exec " + qualified + `"`,
			"exec " + name + " ",
			"exec " + qualified + " ",
		}
	default:
		return nil
	}
}

// containsAny reports whether lowered contains one of patterns.
func containsAny(lowered string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
