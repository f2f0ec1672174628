package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// Result is the expanded forest together with its shape metrics.
type Result struct {
	// Roots heads the forest; every reachable object has Usages populated.
	Roots []*core.RefObject
	// MaxChildren is the largest number of usages attached at one level,
	// revisits included, i.e. the widest level of the rendered tree.
	MaxChildren int
	// Nesting is the number of levels expanded.
	Nesting int

	Discovered int  // usages attached across all levels
	Expanded   int  // objects resolved
	Revisited  int  // usages attached as the first instance of their identity
	Truncated  bool // stopped by MaxDepth with work left

	Failures []Failure
}

// Failure records an object whose usages could not be resolved. The object
// is kept in the forest with no usages.
type Failure struct {
	Object *core.RefObject
	Err    error
}

func (f Failure) Error() string {
	return f.Err.Error()
}

// resolved is the output of one task within a level.
type resolved struct {
	index  int
	usages []*core.RefObject
	err    error
}

// Expand resolves roots level by level until no unseen object remains.
//
// Every usage is attached to its parent. An object whose identity was
// already seen is attached as the first instance of that identity instead of
// being expanded again, so every parent shows the full subtree and mutually
// referencing objects terminate. Duplicate roots are dropped. Resolution failures degrade the
// affected branch and are reported in Result.Failures; only cancellation of
// ctx aborts the traversal.
func (e *Engine) Expand(ctx context.Context, roots []*core.RefObject) (*Result, error) {
	canonical := make(map[string]*core.RefObject, len(roots))
	res := &Result{Roots: make([]*core.RefObject, 0, len(roots))}
	for _, r := range roots {
		id := r.Identity()
		if _, seen := canonical[id]; seen {
			continue
		}
		canonical[id] = r
		res.Roots = append(res.Roots, r)
	}

	e.logger.Info("starting traversal", "roots", len(res.Roots), "workers", e.workers)

	frontier := res.Roots
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.maxDepth > 0 && res.Nesting >= e.maxDepth {
			res.Truncated = true
			e.logger.Warn("traversal truncated", "max_depth", e.maxDepth, "pending", len(frontier))
			break
		}

		outputs := e.expandLevel(ctx, frontier)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		next := make([]*core.RefObject, 0, len(outputs))
		attached := 0
		for _, out := range outputs {
			obj := frontier[out.index]
			res.Expanded++
			if out.err != nil {
				res.Failures = append(res.Failures, Failure{Object: obj, Err: out.err})
				e.logger.Warn("usage resolution failed", "object", obj.String(), "error", out.err)
			}

			// The resolver's slice may be cached; never write into it.
			usages := make([]*core.RefObject, 0, len(out.usages))
			for _, u := range out.usages {
				id := u.Identity()
				if first, seen := canonical[id]; seen {
					res.Revisited++
					usages = append(usages, first)
					continue
				}
				canonical[id] = u
				usages = append(usages, u)
				next = append(next, u)
			}
			obj.Usages = usages
			attached += len(usages)
		}
		res.Discovered += attached

		res.Nesting++
		res.MaxChildren = max(res.MaxChildren, attached)
		e.logger.Debug("level expanded", "level", res.Nesting, "frontier", len(frontier), "next", len(next))
		frontier = next
	}

	e.logger.Info("traversal complete",
		"nesting", res.Nesting,
		"max_children", res.MaxChildren,
		"expanded", res.Expanded,
		"revisited", res.Revisited,
		"failures", len(res.Failures))

	return res, nil
}

// expandLevel resolves every frontier object in parallel and returns the
// outputs in frontier order. Wait is the level barrier. Usages are attached
// by the caller once the level is complete.
func (e *Engine) expandLevel(ctx context.Context, frontier []*core.RefObject) []resolved {
	var (
		mu      sync.Mutex
		outputs = make([]resolved, 0, len(frontier))
		g       errgroup.Group
	)
	g.SetLimit(e.workers)

	for i, obj := range frontier {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			usages, err := e.resolve(obj)
			if err != nil {
				usages = nil
			}

			mu.Lock()
			outputs = append(outputs, resolved{index: i, usages: usages, err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outputs, func(a, b int) bool { return outputs[a].index < outputs[b].index })
	return outputs
}

// resolve calls the finder, turning a panic into an error.
func (e *Engine) resolve(obj *core.RefObject) (usages []*core.RefObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic resolving %s: %v", obj, r)
		}
	}()
	return e.finder.FindUsages(obj)
}
