package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/dbrefs/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/dbrefs/internal/config"
	"github.com/leapstack-labs/dbrefs/internal/state"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{
			cmd:   NewSearchCommand(),
			use:   "search <name>...",
			flags: []string{"types", "exact", "no-render", "no-history", "out", "templates", "workers", "max-depth", "cache-size"},
		},
		{cmd: NewRootsCommand(), use: "roots <name>...", flags: []string{"types", "exact"}},
		{cmd: NewHistoryCommand(), use: "history [run-id]", flags: []string{"limit"}},
		{cmd: NewServeCommand(), use: "serve", flags: []string{"addr", "out"}},
		{cmd: NewInitCommand(), use: "init [directory]", flags: []string{"force", "db"}},
		{cmd: NewVersionCommand("1.2.3", "abc", "today"), use: "version"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			for _, f := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(f), "missing flag --%s", f)
			}
		})
	}
}

func TestSearchCommand_Defaults(t *testing.T) {
	cmd := NewSearchCommand()
	exact, err := cmd.Flags().GetBool("exact")
	require.NoError(t, err)
	assert.True(t, exact)

	assert.Equal(t, []string{"table", "synonym", "procedure", "function", "view"}, kindFlagValues())
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3", "abc123", "2026-01-02"))
	require.NoError(t, err)
	assert.Equal(t, "dbrefs v1.2.3\ncommit abc123, built 2026-01-02\n", out)
}

func TestRootsCommand(t *testing.T) {
	t.Run("markdown table", func(t *testing.T) {
		loadProject(t)
		out, err := execute(t, NewRootsCommand(), "Order", "--exact=false")
		require.NoError(t, err)

		assert.Contains(t, out, "| Sales")
		assert.Contains(t, out, "Orders")
		assert.Contains(t, out, "usp_GetOrders")
		assert.Contains(t, out, "vOrderTotals")
	})

	t.Run("json", func(t *testing.T) {
		_, cfg := loadProject(t)
		cfg.OutputFormat = "json"
		out, err := execute(t, NewRootsCommand(), "usp_GetOrders", "--types", "procedure")
		require.NoError(t, err)

		var lines []rootLine
		require.NoError(t, json.Unmarshal([]byte(out), &lines))
		assert.Equal(t, []rootLine{{Database: "Sales", Schema: "dbo", Name: "usp_GetOrders", Kind: "procedure"}}, lines)
	})

	t.Run("kind filter excludes", func(t *testing.T) {
		loadProject(t)
		out, err := execute(t, NewRootsCommand(), "Orders", "--types", "view")
		require.NoError(t, err)
		assert.Equal(t, "no objects matched\n", out)
	})

	t.Run("unknown kind", func(t *testing.T) {
		loadProject(t)
		_, err := execute(t, NewRootsCommand(), "Orders", "--types", "index")
		require.Error(t, err)
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		loadProject(t)
		out, err := execute(t, NewHistoryCommand())
		require.NoError(t, err)
		assert.Equal(t, "no runs recorded\n", out)
	})

	t.Run("after a search", func(t *testing.T) {
		_, cfg := loadProject(t)
		cc, _ := testContext(t, cfg, output.ModeMarkdown)
		report, err := RunSearch(context.Background(), cc, []string{"Orders"}, &SearchOptions{Exact: true, NoRender: true})
		require.NoError(t, err)
		require.NotEmpty(t, report.RunID)

		out, err := execute(t, NewHistoryCommand())
		require.NoError(t, err)
		assert.Contains(t, out, shortID(report.RunID))
		assert.Contains(t, out, "Orders")

		out, err = execute(t, NewHistoryCommand(), report.RunID)
		require.NoError(t, err)
		assert.Contains(t, out, "# Run "+report.RunID)
		assert.Contains(t, out, "Dead ends")

		cfg.OutputFormat = "json"
		out, err = execute(t, NewHistoryCommand(), "--limit", "1")
		require.NoError(t, err)
		var runs []*state.Run
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, report.RunID, runs[0].ID)
		assert.Equal(t, 3, runs[0].Nesting)
	})

	t.Run("unknown run", func(t *testing.T) {
		loadProject(t)
		_, err := execute(t, NewHistoryCommand(), "missing")
		require.ErrorIs(t, err, state.ErrRunNotFound)
	})

	t.Run("disabled", func(t *testing.T) {
		_, cfg := loadProject(t)
		cfg.StatePath = ""
		_, err := execute(t, NewHistoryCommand())
		require.ErrorIs(t, err, errHistoryDisabled)
	})
}

func TestRunInit(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(dir string)
		databases []string
		force     bool
		wantErr   string
		wantDBs   map[string]string
	}{
		{
			name:    "empty directory",
			wantDBs: map[string]string{"MyDatabase": "./db/MyDatabase"},
		},
		{
			name:      "named databases",
			databases: []string{"Sales=./db/Sales", "Crm=../crm"},
			wantDBs:   map[string]string{"Sales": "./db/Sales", "Crm": "../crm"},
		},
		{
			name:      "invalid database flag",
			databases: []string{"Sales"},
			wantErr:   "want name=path",
		},
		{
			name: "existing config without force",
			setup: func(dir string) {
				_ = os.WriteFile(filepath.Join(dir, sharedcfg.ConfigFileName), []byte("databases: {}\n"), 0600)
			},
			wantErr: "already exists",
		},
		{
			name: "existing config with force",
			setup: func(dir string) {
				_ = os.WriteFile(filepath.Join(dir, sharedcfg.ConfigFileName), []byte("databases: {}\n"), 0600)
			},
			force:   true,
			wantDBs: map[string]string{"MyDatabase": "./db/MyDatabase"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(dir)
			}

			path, err := runInit(dir, tt.databases, tt.force)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, sharedcfg.ConfigFileName), path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)

			var written sampleConfig
			require.NoError(t, yaml.Unmarshal(data, &written))
			assert.Equal(t, tt.wantDBs, written.Databases)
			assert.Equal(t, "auto", written.Output)
			assert.Equal(t, ".dbrefs/state.db", written.StatePath)
			assert.Equal(t, []string{".dtsx"}, written.Extensions.ETL)
		})
	}
}

func TestInitCommand_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "project")
	out, err := execute(t, NewInitCommand(), dir, "--db", "Sales=db/Sales")
	require.NoError(t, err)

	assert.Contains(t, out, "dbrefs configuration created!")
	assert.FileExists(t, filepath.Join(dir, sharedcfg.ConfigFileName))
}
