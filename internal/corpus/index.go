// Package corpus loads every searchable text of a codebase into memory:
// database object scripts, ETL packages and application source files.
//
// An Index is immutable after Build and safe for concurrent reads.
package corpus

import "github.com/leapstack-labs/dbrefs/pkg/core"

// Script is one database object definition.
type Script struct {
	Name   string // file name without extension
	Schema string // owning schema folder
	Text   string
}

// Database holds the scripts of one configured database grouped by kind.
type Database struct {
	Name    string
	Objects map[core.Kind][]Script
}

// Document is a loaded text file.
type Document struct {
	Name string // reported name: base name, without extension for ETL packages
	Path string
	Text string
}

// Solution is a group of source files under one solution file.
type Solution struct {
	Name  string
	Path  string
	Files []Document
}

// Index is the in-memory corpus. A nil collection means the corresponding
// location was not configured.
type Index struct {
	Databases []Database
	ETL       []Document
	Solutions []Solution
}

// Stats summarises the size of an index.
type Stats struct {
	Databases int `json:"databases"`
	Scripts   int `json:"scripts"`
	Packages  int `json:"packages"`
	Solutions int `json:"solutions"`
	Files     int `json:"files"`
}

// HasDatabases reports whether a database corpus is configured.
func (ix *Index) HasDatabases() bool { return ix.Databases != nil }

// HasETL reports whether an ETL corpus is configured.
func (ix *Index) HasETL() bool { return ix.ETL != nil }

// HasSource reports whether a source corpus is configured.
func (ix *Index) HasSource() bool { return ix.Solutions != nil }

// Stats counts the loaded entries.
func (ix *Index) Stats() Stats {
	s := Stats{
		Databases: len(ix.Databases),
		Packages:  len(ix.ETL),
		Solutions: len(ix.Solutions),
	}
	for _, db := range ix.Databases {
		for _, scripts := range db.Objects {
			s.Scripts += len(scripts)
		}
	}
	for _, sln := range ix.Solutions {
		s.Files += len(sln.Files)
	}
	return s
}
