package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbrefs/internal/cli/output"
	"github.com/leapstack-labs/dbrefs/internal/corpus"
	"github.com/leapstack-labs/dbrefs/internal/search"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// NewRootsCommand creates the roots command.
func NewRootsCommand() *cobra.Command {
	var types []string
	var exact bool

	cmd := &cobra.Command{
		Use:   "roots <name>...",
		Short: "List the database objects a search would start from",
		Long: `List the database objects matching the given names without
searching for their usages. Useful to check a name or --exact=false pattern
before running a full search.`,
		Example: `  dbrefs roots Orders
  dbrefs roots Sales:Order --exact=false --types table,view`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			roots, err := findRoots(cc, args, types, exact)
			if err != nil {
				return err
			}
			return printRoots(cc.Renderer, roots)
		},
	}

	cmd.Flags().StringSliceVar(&types, "types", nil, "Object kinds to match; default all")
	cmd.Flags().BoolVar(&exact, "exact", true, "Match names exactly (false matches substrings)")

	return cmd
}

func findRoots(cc *CommandContext, names, types []string, exact bool) ([]*core.RefObject, error) {
	kinds, err := core.ParseKinds(types)
	if err != nil {
		return nil, err
	}
	idx, err := corpus.Build(cc.Cfg.Search, cc.Logger)
	if err != nil {
		return nil, err
	}
	return search.NewResolver(idx, nil, cc.Logger).FindRoots(names, kinds, exact), nil
}

type rootLine struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
}

func printRoots(r *output.Renderer, roots []*core.RefObject) error {
	lines := make([]rootLine, len(roots))
	for i, o := range roots {
		lines[i] = rootLine{Database: o.Database, Schema: o.Schema, Name: o.Name, Kind: o.Kind.String()}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(lines)
	}
	if len(lines) == 0 {
		r.Println("no objects matched")
		return nil
	}

	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{l.Database, l.Schema, l.Name, l.Kind}
	}
	r.Table([]string{"Database", "Schema", "Name", "Kind"}, rows)
	return nil
}
