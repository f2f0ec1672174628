package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbrefs/internal/cli/config"
	"github.com/leapstack-labs/dbrefs/internal/cli/output"
	clitestutil "github.com/leapstack-labs/dbrefs/internal/cli/testutil"
	"github.com/leapstack-labs/dbrefs/internal/state"
	"github.com/leapstack-labs/dbrefs/internal/testutil"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// loadProject writes the test project and loads its configuration as the
// current config, the way the root command does before running a command.
func loadProject(t *testing.T) (*clitestutil.Project, *config.Config) {
	t.Helper()
	p := clitestutil.SetupTestProject(t)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig(p.ConfigPath, nil)
	require.NoError(t, err)
	return p, cfg
}

func testContext(t *testing.T, cfg *config.Config, mode output.Mode) (*CommandContext, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRenderer(buf, buf, mode),
	}, buf
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunSearch(t *testing.T) {
	p, cfg := loadProject(t)
	cc, _ := testContext(t, cfg, output.ModeMarkdown)

	report, err := RunSearch(context.Background(), cc, []string{"Orders"}, &SearchOptions{Exact: true})
	require.NoError(t, err)

	assert.True(t, report.Matched())
	assert.Equal(t, []string{"Sales:dbo.Orders (table)"}, report.Roots)
	assert.Equal(t, 3, report.Nesting)
	assert.Equal(t, 2, report.MaxChildren)
	assert.Equal(t, 5, report.Expanded)
	assert.Equal(t, 0, report.Revisited)
	assert.False(t, report.Truncated)
	assert.Equal(t, 5, report.Nodes)
	assert.Equal(t, 4, report.Links)
	assert.Equal(t, []string{"SALES.vOrderTotals [VIEW]"}, report.DeadEnds)
	assert.Empty(t, report.Cycle)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Corpus.Databases)
	assert.Equal(t, 3, report.Corpus.Scripts)

	assert.Equal(t, p.OutputDir, filepath.Dir(report.TreeFile))
	assert.FileExists(t, report.TreeFile)
	assert.FileExists(t, report.GraphFile)

	require.NotEmpty(t, report.RunID)
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(p.StatePath))
	defer func() { _ = store.Close() }()
	run, err := store.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, run.Roots)
	assert.Equal(t, 5, run.Nodes)
	assert.Equal(t, 1, run.DeadEnds)
	assert.Equal(t, report.TreeFile, run.TreeFile)
}

func TestRunSearch_Options(t *testing.T) {
	tests := []struct {
		name      string
		names     []string
		opts      SearchOptions
		maxDepth  int
		wantRoots []string
		check     func(t *testing.T, report *SearchReport)
	}{
		{
			name:      "substring match",
			names:     []string{"Order"},
			opts:      SearchOptions{Types: []string{"view"}, NoRender: true, NoHistory: true},
			wantRoots: []string{"Sales:dbo.vOrderTotals (view)"},
		},
		{
			name:      "database qualifier",
			names:     []string{"Sales:usp_GetOrders"},
			opts:      SearchOptions{Exact: true, NoRender: true, NoHistory: true},
			wantRoots: []string{"Sales:dbo.usp_GetOrders (procedure)"},
			check: func(t *testing.T, report *SearchReport) {
				assert.Equal(t, 3, report.Nodes)
				assert.Empty(t, report.DeadEnds)
			},
		},
		{
			name:      "max depth truncates",
			names:     []string{"Orders"},
			opts:      SearchOptions{Exact: true, NoRender: true, NoHistory: true},
			maxDepth:  1,
			wantRoots: []string{"Sales:dbo.Orders (table)"},
			check: func(t *testing.T, report *SearchReport) {
				assert.True(t, report.Truncated)
				assert.Equal(t, 1, report.Nesting)
				assert.Equal(t, 3, report.Nodes)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cfg := loadProject(t)
			cfg.Tuning.MaxDepth = tt.maxDepth
			cc, _ := testContext(t, cfg, output.ModeMarkdown)

			report, err := RunSearch(context.Background(), cc, tt.names, &tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoots, report.Roots)
			assert.Empty(t, report.TreeFile)
			assert.Empty(t, report.RunID)
			assert.NoDirExists(t, p.OutputDir)
			if tt.check != nil {
				tt.check(t, report)
			}
		})
	}
}

func TestRunSearch_NoMatch(t *testing.T) {
	p, cfg := loadProject(t)
	cc, _ := testContext(t, cfg, output.ModeMarkdown)

	report, err := RunSearch(context.Background(), cc, []string{"Nope"}, &SearchOptions{Exact: true})
	require.NoError(t, err)
	assert.False(t, report.Matched())
	assert.Empty(t, report.RunID)
	assert.NoFileExists(t, p.StatePath)
}

func TestRunSearch_Errors(t *testing.T) {
	t.Run("non database kind", func(t *testing.T) {
		_, cfg := loadProject(t)
		cc, _ := testContext(t, cfg, output.ModeMarkdown)
		_, err := RunSearch(context.Background(), cc, []string{"Orders"}, &SearchOptions{Types: []string{"source"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be searched for")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, cfg := loadProject(t)
		cc, _ := testContext(t, cfg, output.ModeMarkdown)
		_, err := RunSearch(context.Background(), cc, []string{"Orders"}, &SearchOptions{Types: []string{"index"}})
		require.Error(t, err)
	})

	t.Run("missing database root", func(t *testing.T) {
		_, cfg := loadProject(t)
		cfg.Databases = map[string]string{"Sales": filepath.Join(t.TempDir(), "missing")}
		cc, _ := testContext(t, cfg, output.ModeMarkdown)
		_, err := RunSearch(context.Background(), cc, []string{"Orders"}, &SearchOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrConfiguration))
	})
}

func TestSearchCommand(t *testing.T) {
	t.Run("markdown summary", func(t *testing.T) {
		loadProject(t)
		out, err := execute(t, NewSearchCommand(), "Orders", "--no-render", "--no-history")
		require.NoError(t, err)

		assert.Contains(t, out, "# Usages of Orders")
		assert.Contains(t, out, "Sales:dbo.Orders (table)")
		assert.Contains(t, out, "## Objects without a consumer (1)")
		assert.Contains(t, out, "SALES.vOrderTotals [VIEW]")
		clitestutil.AssertNoANSI(t, out)
		clitestutil.AssertValidMarkdown(t, out)
	})

	t.Run("json", func(t *testing.T) {
		_, cfg := loadProject(t)
		cfg.OutputFormat = "json"
		out, err := execute(t, NewSearchCommand(), "usp_GetOrders", "--no-render", "--no-history")
		require.NoError(t, err)

		var report SearchReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, []string{"Sales:dbo.usp_GetOrders (procedure)"}, report.Roots)
		assert.Equal(t, 3, report.Nodes)
	})

	t.Run("no match", func(t *testing.T) {
		loadProject(t)
		out, err := execute(t, NewSearchCommand(), "Nope")
		require.NoError(t, err)
		assert.Equal(t, "no objects matched\n", out)
	})

	t.Run("requires a name", func(t *testing.T) {
		loadProject(t)
		_, err := execute(t, NewSearchCommand())
		require.Error(t, err)
	})
}

func TestSearchCommand_WritesPages(t *testing.T) {
	p, _ := loadProject(t)
	_, err := execute(t, NewSearchCommand(), "Orders")
	require.NoError(t, err)

	entries, err := os.ReadDir(p.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	names := entries[0].Name() + " " + entries[1].Name()
	assert.Regexp(t, `\d+_graph_Orders\.html`, names)
	assert.Regexp(t, `\d+_tree_Orders\.html`, names)
}
