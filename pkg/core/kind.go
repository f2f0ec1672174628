package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Kind
// =============================================================================

// Kind is the category of a reference object.
// The numeric value doubles as the node group in rendered graphs.
type Kind int

// Reference object kinds.
const (
	// KindUnknown is the zero value and never produced by the index.
	KindUnknown Kind = iota
	// Table is a database table.
	Table
	// Synonym is a database synonym.
	Synonym
	// StoredProcedure is a database stored procedure.
	StoredProcedure
	// Function is a database function.
	Function
	// View is a database view.
	View
	// SourceFile is an application source or mapping file.
	SourceFile
	// EtlPackage is an ETL package file.
	EtlPackage
)

// DatabaseKinds lists the kinds that live in a database corpus, in declaration order.
var DatabaseKinds = []Kind{Table, Synonym, StoredProcedure, Function, View}

var kindNames = [...]string{
	KindUnknown:     "unknown",
	Table:           "table",
	Synonym:         "synonym",
	StoredProcedure: "procedure",
	Function:        "function",
	View:            "view",
	SourceFile:      "source",
	EtlPackage:      "etl",
}

// kindFolders maps database kinds to the folder holding their scripts
// inside a schema folder.
var kindFolders = [...]string{
	Table:           "Tables",
	Synonym:         "Synonyms",
	StoredProcedure: "Stored Procedures",
	Function:        "Functions",
	View:            "Views",
	SourceFile:      "",
	EtlPackage:      "",
}

// usableIn is the type compatibility relation: for a kind, the database kinds
// whose definitions may contain a usage of an object of that kind.
var usableIn = map[Kind][]Kind{
	Table:           {Synonym, StoredProcedure, Function, View},
	Synonym:         {StoredProcedure, Function, View},
	StoredProcedure: {StoredProcedure},
	Function:        {StoredProcedure, Function},
	View:            {Synonym, StoredProcedure, Function, View},
}

var kindAliases = map[string]Kind{
	"table":            Table,
	"tables":           Table,
	"tbl":              Table,
	"synonym":          Synonym,
	"synonyms":         Synonym,
	"syn":              Synonym,
	"procedure":        StoredProcedure,
	"procedures":       StoredProcedure,
	"storedprocedure":  StoredProcedure,
	"stored_procedure": StoredProcedure,
	"sp":               StoredProcedure,
	"proc":             StoredProcedure,
	"function":         Function,
	"functions":        Function,
	"fun":              Function,
	"fn":               Function,
	"view":             View,
	"views":            View,
	"v":                View,
	"source":           SourceFile,
	"sourcefile":       SourceFile,
	"src":              SourceFile,
	"cs":               SourceFile,
	"etl":              EtlPackage,
	"etlpackage":       EtlPackage,
	"dtsx":             EtlPackage,
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Folder returns the kind folder name used by the database corpus layout.
// Non-database kinds return an empty string.
func (k Kind) Folder() string {
	if k <= KindUnknown || int(k) >= len(kindFolders) {
		return ""
	}
	return kindFolders[k]
}

// IsDatabase reports whether objects of this kind are indexed from a database root.
func (k Kind) IsDatabase() bool {
	return k.Folder() != ""
}

// UsableIn returns the kinds whose definitions are searched for usages of an
// object of kind k. The second result is false when k has no entry.
func UsableIn(k Kind) ([]Kind, bool) {
	kinds, ok := usableIn[k]
	return kinds, ok
}

// ParseKind converts a user supplied kind name or alias into a Kind.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown object kind %q", s)
}

// ParseKinds parses a list of kind names, stopping at the first invalid one.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// KindNames returns the canonical names of all indexable kinds.
func KindNames() []string {
	names := make([]string, 0, len(DatabaseKinds)+2)
	for _, k := range []Kind{Table, Synonym, StoredProcedure, Function, View, SourceFile, EtlPackage} {
		names = append(names, k.String())
	}
	return names
}
