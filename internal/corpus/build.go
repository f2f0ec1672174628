package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbrefs/internal/config"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

const scriptExt = ".sql"

// Build loads every configured location into a new Index.
// Missing configured locations are reported as *core.ConfigurationError.
func Build(cfg config.Search, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	config.ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ix := &Index{}

	dbs, err := loadDatabases(cfg, logger)
	if err != nil {
		return nil, err
	}
	ix.Databases = dbs

	if cfg.ETLPath != "" {
		docs, err := loadETL(cfg.ETLPath, cfg.Extensions.ETL)
		if err != nil {
			return nil, err
		}
		logger.Debug("indexed etl packages", "root", cfg.ETLPath, "packages", len(docs))
		ix.ETL = docs
	}

	if cfg.SourcePath != "" {
		slns, err := loadSolutions(cfg.SourcePath, cfg.Extensions, logger)
		if err != nil {
			return nil, err
		}
		ix.Solutions = slns
	}

	stats := ix.Stats()
	logger.Info("corpus indexed",
		"databases", stats.Databases,
		"scripts", stats.Scripts,
		"packages", stats.Packages,
		"solutions", stats.Solutions,
		"files", stats.Files)

	return ix, nil
}

// loadDatabases indexes each database root concurrently and returns them in
// name order.
func loadDatabases(cfg config.Search, logger *slog.Logger) ([]Database, error) {
	names := cfg.DatabaseNames()
	dbs := make([]Database, len(names))

	var g errgroup.Group
	for i, name := range names {
		root := cfg.Databases[name]
		g.Go(func() error {
			db, err := loadDatabase(name, root)
			if err != nil {
				return err
			}
			logger.Debug("indexed database", "database", name, "root", root, "kinds", len(db.Objects))
			dbs[i] = db
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dbs, nil
}

func loadDatabase(name, root string) (Database, error) {
	db := Database{Name: name, Objects: make(map[core.Kind][]Script)}

	if err := requireDir("databases."+name, root); err != nil {
		return db, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return db, fmt.Errorf("reading database root %s: %w", root, err)
	}

	for _, schemaDir := range entries {
		if !schemaDir.IsDir() {
			continue
		}
		schemaPath := filepath.Join(root, schemaDir.Name())
		if !hasKindFolder(schemaPath) {
			continue
		}
		for _, kind := range core.DatabaseKinds {
			scripts, err := loadScripts(filepath.Join(schemaPath, kind.Folder()), schemaDir.Name())
			if err != nil {
				return db, err
			}
			db.Objects[kind] = append(db.Objects[kind], scripts...)
		}
	}
	return db, nil
}

// hasKindFolder reports whether dir contains at least one kind folder.
func hasKindFolder(dir string) bool {
	for _, kind := range core.DatabaseKinds {
		if info, err := os.Stat(filepath.Join(dir, kind.Folder())); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func loadScripts(dir, schema string) ([]Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var scripts []Script
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), scriptExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", path, err)
		}
		scripts = append(scripts, Script{
			Name:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Schema: schema,
			Text:   string(text),
		})
	}
	return scripts, nil
}

func loadETL(root string, exts []string) ([]Document, error) {
	if err := requireDir("etl_path", root); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading etl root %s: %w", root, err)
	}

	docs := []Document{}
	for _, e := range entries {
		if e.IsDir() || !config.HasExtension(e.Name(), exts) {
			continue
		}
		doc, err := readDocument(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		doc.Name = strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func loadSolutions(root string, exts config.Extensions, logger *slog.Logger) ([]Solution, error) {
	if err := requireDir("source_path", root); err != nil {
		return nil, err
	}

	w := newWalker(root)
	slnPaths, err := w.files(root, exts.Solution)
	if err != nil {
		return nil, err
	}

	slns := []Solution{}
	for _, slnPath := range slnPaths {
		paths, err := w.files(filepath.Dir(slnPath), exts.Source)
		if err != nil {
			return nil, err
		}
		base := filepath.Base(slnPath)
		sln := Solution{
			Name:  strings.TrimSuffix(base, filepath.Ext(base)),
			Path:  slnPath,
			Files: make([]Document, 0, len(paths)),
		}
		for _, p := range paths {
			doc, err := readDocument(p)
			if err != nil {
				return nil, err
			}
			sln.Files = append(sln.Files, doc)
		}
		logger.Debug("indexed solution", "solution", sln.Name, "files", len(sln.Files))
		slns = append(slns, sln)
	}
	sort.SliceStable(slns, func(i, j int) bool { return slns[i].Name < slns[j].Name })
	return slns, nil
}

func readDocument(path string) (Document, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Document{Name: filepath.Base(path), Path: path, Text: string(text)}, nil
}

func requireDir(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &core.ConfigurationError{Field: field, Path: path, Err: err}
	}
	if !info.IsDir() {
		return &core.ConfigurationError{Field: field, Path: path, Err: errNotDirectory}
	}
	return nil
}
