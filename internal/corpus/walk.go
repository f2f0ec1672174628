package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/leapstack-labs/dbrefs/internal/config"
)

var errNotDirectory = errors.New("not a directory")

var skipDirs = map[string]struct{}{
	".git":         {},
	".vs":          {},
	"bin":          {},
	"obj":          {},
	"node_modules": {},
	"packages":     {},
}

// walker finds files under the source root, honouring its .gitignore.
type walker struct {
	root string
	gi   *ignore.GitIgnore
}

func newWalker(root string) *walker {
	return &walker{root: root, gi: loadGitignore(root)}
}

// files returns every file under dir with one of exts, sorted by path.
func (w *walker) files(dir string, exts []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip || w.ignored(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !config.HasExtension(d.Name(), exts) || w.ignored(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

func (w *walker) ignored(path string) bool {
	if w.gi == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.gi.MatchesPath(filepath.ToSlash(rel))
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
