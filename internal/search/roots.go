package search

import (
	"strings"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// FindRoots returns one object per database entry whose name matches one of
// names. With exact, names compare equal ignoring case; otherwise an entry
// matches when its name contains the requested name, ignoring case.
//
// A name of the form "db:name" only matches within database db. Empty kinds
// selects every database kind. Duplicates are not removed.
func (r *Resolver) FindRoots(names []string, kinds []core.Kind, exact bool) []*core.RefObject {
	if len(kinds) == 0 {
		kinds = core.DatabaseKinds
	}

	queries := make([]rootQuery, 0, len(names))
	for _, n := range names {
		queries = append(queries, parseRootQuery(n))
	}

	roots := []*core.RefObject{}
	for _, db := range r.index.Databases {
		for _, kind := range kinds {
			scripts, ok := db.Objects[kind]
			if !ok {
				continue
			}
			for _, q := range queries {
				if q.database != "" && !strings.EqualFold(q.database, db.Name) {
					continue
				}
				for _, s := range scripts {
					if !q.matches(s.Name, exact) {
						continue
					}
					roots = append(roots, &core.RefObject{
						Database: db.Name,
						Schema:   s.Schema,
						Name:     s.Name,
						Kind:     kind,
					})
				}
			}
		}
	}
	return roots
}

type rootQuery struct {
	database string
	name     string
}

func parseRootQuery(s string) rootQuery {
	s = strings.TrimSpace(s)
	if db, name, ok := strings.Cut(s, ":"); ok {
		return rootQuery{database: strings.TrimSpace(db), name: strings.TrimSpace(name)}
	}
	return rootQuery{name: s}
}

func (q rootQuery) matches(name string, exact bool) bool {
	if exact {
		return strings.EqualFold(name, q.name)
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(q.name))
}
