package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/dbrefs/internal/cli/config"
	sharedcfg "github.com/leapstack-labs/dbrefs/internal/config"
)

// sampleConfig is the document written by init, in file order.
type sampleConfig struct {
	Databases    map[string]string    `yaml:"databases"`
	ETLPath      string               `yaml:"etl_path"`
	SourcePath   string               `yaml:"source_path"`
	OutputDir    string               `yaml:"output_dir"`
	TemplatesDir string               `yaml:"templates_dir"`
	StatePath    string               `yaml:"state_path"`
	Output       string               `yaml:"output"`
	Search       sharedcfg.Tuning     `yaml:"search"`
	Extensions   sharedcfg.Extensions `yaml:"extensions"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var databases []string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a dbrefs.yaml configuration",
		Long: `Create a dbrefs.yaml configuration file with every option spelled out.

Database roots are given as name=path pairs; without any, a placeholder
database is written for you to edit.`,
		Example: `  # Initialize in current directory
  dbrefs init

  # Initialize with two databases
  dbrefs init --db Sales=./db/Sales --db Crm=./db/Crm

  # Force overwrite existing config
  dbrefs init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc := NewCommandContext(cmd)

			path, err := runInit(dir, databases, force)
			if err != nil {
				return err
			}

			r := cc.Renderer
			r.StatusLine(path, "success", "")
			r.Println("")
			r.Success("dbrefs configuration created!")
			r.Println("")
			r.Println("Next steps:")
			r.Println("  1. Point databases, etl_path and source_path at your scripts")
			r.Println("  2. Run 'dbrefs roots <name>' to check a name matches")
			r.Println("  3. Run 'dbrefs search <name>' to map its usages")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringArrayVar(&databases, "db", nil, "Database root as name=path (repeatable)")

	return cmd
}

func runInit(dir string, databases []string, force bool) (string, error) {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	path := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	sample := sampleConfig{
		Databases: map[string]string{"MyDatabase": "./db/MyDatabase"},
		OutputDir: config.DefaultOutputDir,
		StatePath: config.DefaultStateFile,
		Output:    config.DefaultOutput,
		Extensions: sharedcfg.Extensions{
			ETL:      sharedcfg.DefaultETLExtensions,
			Solution: sharedcfg.DefaultSolutionExtensions,
			Source:   sharedcfg.DefaultSourceExtensions,
		},
	}
	if len(databases) > 0 {
		sample.Databases = make(map[string]string, len(databases))
		for _, d := range databases {
			name, root, ok := strings.Cut(d, "=")
			if !ok || name == "" || root == "" {
				return "", fmt.Errorf("invalid --db %q, want name=path", d)
			}
			sample.Databases[name] = root
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# dbrefs configuration. Relative paths resolve against this file.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sample); err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
