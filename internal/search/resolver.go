// Package search resolves which artifacts of a corpus reference a given
// database object, and locates the objects a search starts from.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/leapstack-labs/dbrefs/internal/corpus"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// ErrResolution is the sentinel matched by every *ResolutionError.
var ErrResolution = errors.New("resolution failed")

var errEmptyName = errors.New("object name is empty")

// ResolutionError reports a failure to resolve the usages of one object.
type ResolutionError struct {
	Object *core.RefObject
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving usages of %s: %v", e.Object, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrResolution.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// sourceFile is a source document with its text lowercased once for
// case-insensitive containment checks.
type sourceFile struct {
	name  string
	lower string
}

// Resolver finds usages over an immutable corpus index. It is safe for
// concurrent use; the cache is its only mutable state.
type Resolver struct {
	index   *corpus.Index
	cache   Cache
	logger  *slog.Logger
	sources []sourceFile
	scans   atomic.Int64
}

// NewResolver creates a Resolver. A nil cache selects an unbounded MapCache.
func NewResolver(index *corpus.Index, cache Cache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewMapCache()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Resolver{index: index, cache: cache, logger: logger}
	for _, sln := range index.Solutions {
		for _, f := range sln.Files {
			r.sources = append(r.sources, sourceFile{
				name:  f.Name,
				lower: strings.ToLower(f.Text),
			})
		}
	}
	return r
}

// Scans returns the number of corpus scans performed, i.e. cache misses.
func (r *Resolver) Scans() int64 {
	return r.scans.Load()
}

// Cache returns the usage cache.
func (r *Resolver) Cache() Cache {
	return r.cache
}

// FindUsages returns the artifacts that reference obj. On a cache hit the
// cached list is returned without obj itself, since the key is shared by
// every object with the same schema.name; otherwise the corpus is scanned
// and the result cached. The returned objects have no usages of their own.
func (r *Resolver) FindUsages(obj *core.RefObject) ([]*core.RefObject, error) {
	key := obj.CacheKey()
	if cached, ok := r.cache.Get(key); ok {
		return withoutObject(cached, obj), nil
	}

	if obj.Name == "" {
		return nil, &ResolutionError{Object: obj, Err: errEmptyName}
	}
	re, err := namePattern(obj.Name)
	if err != nil {
		return nil, &ResolutionError{Object: obj, Err: err}
	}
	r.scans.Add(1)

	var found []*core.RefObject

	if kinds, ok := core.UsableIn(obj.Kind); ok {
		for _, db := range r.index.Databases {
			for _, kind := range kinds {
				for _, s := range db.Objects[kind] {
					cand := &core.RefObject{Database: db.Name, Schema: s.Schema, Name: s.Name, Kind: kind}
					if cand.SameObject(obj) || !re.MatchString(s.Text) {
						continue
					}
					found = append(found, cand)
				}
			}
		}
	}

	if obj.Kind != core.SourceFile && obj.Kind != core.EtlPackage {
		for _, doc := range r.index.ETL {
			if re.MatchString(doc.Text) {
				found = append(found, &core.RefObject{Name: doc.Name, Kind: core.EtlPackage})
			}
		}

		if patterns := sourcePatterns(obj); patterns != nil {
			for _, f := range r.sources {
				if containsAny(f.lower, patterns) {
					found = append(found, &core.RefObject{Name: f.name, Kind: core.SourceFile})
				}
			}
		}
	}

	usages := dedup(found)
	if _, stored := r.cache.PutIfAbsent(key, usages); !stored {
		r.logger.Debug("usage cache already populated", "key", key)
	}
	r.logger.Debug("resolved usages", "object", obj.String(), "usages", len(usages))
	return usages, nil
}

// withoutObject returns usages minus any entry naming obj. The input slice
// is never modified; it is returned as is when nothing has to be dropped.
func withoutObject(usages []*core.RefObject, obj *core.RefObject) []*core.RefObject {
	for i, u := range usages {
		if !u.SameObject(obj) {
			continue
		}
		out := make([]*core.RefObject, 0, len(usages)-1)
		out = append(out, usages[:i]...)
		for _, rest := range usages[i+1:] {
			if !rest.SameObject(obj) {
				out = append(out, rest)
			}
		}
		return out
	}
	return usages
}

// dedup keeps the first object per (name, kind, database), ignoring case.
func dedup(objs []*core.RefObject) []*core.RefObject {
	out := make([]*core.RefObject, 0, len(objs))
	seen := make(map[string]struct{}, len(objs))
	for _, o := range objs {
		k := strings.ToLower(o.Name) + "|" + o.Kind.String() + "|" + strings.ToLower(o.Database)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	return out
}
