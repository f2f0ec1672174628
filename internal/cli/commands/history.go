package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbrefs/internal/cli/output"
	"github.com/leapstack-labs/dbrefs/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded searches",
		Long: `Show the searches recorded in the state database, newest first.
With a run ID, show that run including its resolution failures.`,
		Example: `  dbrefs history
  dbrefs history --limit 5 -o json
  dbrefs history 3f2b9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRun(cc.Renderer, run)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cc.Renderer, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")

	return cmd
}

func printRuns(r *output.Renderer, runs []*state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Println("no runs recorded")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			strings.Join(run.Roots, ","),
			fmt.Sprint(run.Nesting),
			fmt.Sprint(run.Nodes),
			fmt.Sprint(run.Links),
			fmt.Sprint(run.DeadEnds),
			run.Duration.Round(time.Millisecond).String(),
		}
	}
	r.Table([]string{"Run", "Started", "Roots", "Levels", "Nodes", "Links", "Dead ends", "Duration"}, rows)
	return nil
}

func printRun(r *output.Renderer, run *state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(run)
	}

	styles := r.Styles()
	r.Header(1, "Run "+run.ID)
	field := func(name, value string) {
		r.Printf("  %s: %s\n", styles.Bold.Render(name), value)
	}
	field("Started", run.StartedAt.Local().Format(time.DateTime))
	field("Duration", run.Duration.Round(time.Millisecond).String())
	field("Roots", strings.Join(run.Roots, ", "))
	field("Kinds", strings.Join(run.Kinds, ", "))
	field("Exact", fmt.Sprint(run.Exact))
	field("Levels", fmt.Sprint(run.Nesting))
	field("Widest level", fmt.Sprint(run.MaxChildren))
	field("Expanded", fmt.Sprint(run.Expanded))
	field("Revisited", fmt.Sprint(run.Revisited))
	field("Nodes", fmt.Sprint(run.Nodes))
	field("Links", fmt.Sprint(run.Links))
	field("Dead ends", fmt.Sprint(run.DeadEnds))
	if run.Truncated {
		field("Truncated", "true")
	}
	if run.TreeFile != "" {
		field("Tree", run.TreeFile)
	}
	if run.GraphFile != "" {
		field("Graph", run.GraphFile)
	}

	if len(run.Failures) > 0 {
		r.Println("")
		r.Header(2, fmt.Sprintf("Failures (%d)", len(run.Failures)))
		for _, f := range run.Failures {
			r.StatusLine(f.Object, "failed", f.Error)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
