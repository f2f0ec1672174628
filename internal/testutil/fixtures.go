package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// Corpus lays out a database script tree, an ETL folder and a source tree
// under one temporary directory.
type Corpus struct {
	t    testing.TB
	Root string
}

// NewCorpus creates an empty corpus fixture under t.TempDir().
func NewCorpus(t testing.TB) *Corpus {
	t.Helper()
	return &Corpus{t: t, Root: t.TempDir()}
}

// DatabaseRoot returns the script root of the named database.
func (c *Corpus) DatabaseRoot(db string) string {
	return filepath.Join(c.Root, "db", db)
}

// ETLRoot returns the ETL package folder.
func (c *Corpus) ETLRoot() string {
	return filepath.Join(c.Root, "etl")
}

// SourceRoot returns the application source folder.
func (c *Corpus) SourceRoot() string {
	return filepath.Join(c.Root, "src")
}

// Script writes db/<db>/<schema>/<folder>/<name>.sql.
func (c *Corpus) Script(db, schema, folder, name, text string) *Corpus {
	c.t.Helper()
	WriteFile(c.t, c.DatabaseRoot(db), filepath.Join(schema, folder, name+".sql"), text)
	return c
}

// Package writes etl/<name>.
func (c *Corpus) Package(name, text string) *Corpus {
	c.t.Helper()
	WriteFile(c.t, c.ETLRoot(), name, text)
	return c
}

// Source writes src/<rel>.
func (c *Corpus) Source(rel, text string) *Corpus {
	c.t.Helper()
	WriteFile(c.t, c.SourceRoot(), rel, text)
	return c
}
