// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/dbrefs/internal/testutil"
)

// Project is an on-disk corpus with a dbrefs.yaml pointing at it.
type Project struct {
	Dir        string
	ConfigPath string
	OutputDir  string
	StatePath  string
}

// SetupTestProject creates a temporary project: a Sales database with a
// table, a procedure reading it and a view over it, an ETL package
// calling the procedure and a solution whose repository calls it too.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	c := testutil.NewCorpus(t).
		Script("Sales", "dbo", "Tables", "Orders", "CREATE TABLE dbo.Orders (Id INT, Total MONEY)").
		Script("Sales", "dbo", "Stored Procedures", "usp_GetOrders",
			"CREATE PROCEDURE dbo.usp_GetOrders AS SELECT Id FROM dbo.Orders").
		Script("Sales", "dbo", "Views", "vOrderTotals",
			"CREATE VIEW dbo.vOrderTotals AS SELECT SUM(Total) AS Total FROM dbo.Orders").
		Package("LoadOrders.dtsx", "<SqlStatementSource>EXEC dbo.usp_GetOrders</SqlStatementSource>").
		Source("App/App.sln", "Microsoft Visual Studio Solution File").
		Source("App/OrderRepository.cs", `cmd.CommandText = "usp_GetOrders";`)

	p := &Project{
		Dir:        c.Root,
		ConfigPath: filepath.Join(c.Root, "dbrefs.yaml"),
		OutputDir:  filepath.Join(c.Root, "out"),
		StatePath:  filepath.Join(c.Root, ".dbrefs", "state.db"),
	}

	cfg := `databases:
  Sales: db/Sales
etl_path: etl
source_path: src
output_dir: out
state_path: .dbrefs/state.db
output: markdown
`
	if err := os.WriteFile(p.ConfigPath, []byte(cfg), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return p
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
