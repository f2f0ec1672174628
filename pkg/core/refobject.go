package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RootName is the name of the synthetic forest head.
const RootName = "root"

// RefObject is a node in the dependency forest: a named artifact together
// with the artifacts that reference it.
//
// Usages is written exactly once by the traversal driver and is read-only
// afterwards. Instances returned from the usage cache may be shared between
// parents, so callers must never mutate them in place.
type RefObject struct {
	Database string
	Schema   string
	Name     string
	Kind     Kind
	Usages   []*RefObject
}

// IsRoot reports whether the object is the synthetic forest head.
func (o *RefObject) IsRoot() bool {
	return o.Name == RootName
}

// RenderKey returns the display identity of the object.
// It is used for rendering and graph node grouping only, never for
// equality during resolution.
func (o *RefObject) RenderKey() string {
	if o.IsRoot() {
		return o.Name
	}
	upper := cases.Upper(language.Und)
	kind := upper.String(o.Kind.String())
	if o.Database == "" {
		return o.Name + " [" + kind + "]"
	}
	return upper.String(o.Database) + "." + o.Name + " [" + kind + "]"
}

// CacheKey returns the memoization key of the object: lowercase schema.name.
func (o *RefObject) CacheKey() string {
	return strings.ToLower(o.Schema + "." + o.Name)
}

// Identity returns a stable, case-insensitive identity covering database,
// schema, name and kind.
func (o *RefObject) Identity() string {
	return strings.ToLower(o.Database+"|"+o.Schema+"|"+o.Name) + "|" + o.Kind.String()
}

// SameObject reports whether other names the same artifact as o: equal name,
// kind and database, ignoring case. Schemas are not compared.
func (o *RefObject) SameObject(other *RefObject) bool {
	return o.Kind == other.Kind &&
		strings.EqualFold(o.Name, other.Name) &&
		strings.EqualFold(o.Database, other.Database)
}

// String implements fmt.Stringer.
func (o *RefObject) String() string {
	var b strings.Builder
	if o.Database != "" {
		b.WriteString(o.Database)
		b.WriteByte(':')
	}
	if o.Schema != "" {
		b.WriteString(o.Schema)
		b.WriteByte('.')
	}
	b.WriteString(o.Name)
	b.WriteString(" (")
	b.WriteString(o.Kind.String())
	b.WriteByte(')')
	return b.String()
}

// Names returns the names of the given objects in order.
func Names(objects []*RefObject) []string {
	names := make([]string, len(objects))
	for i, o := range objects {
		names[i] = o.Name
	}
	return names
}
