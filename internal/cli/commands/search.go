package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbrefs/internal/cli/output"
	"github.com/leapstack-labs/dbrefs/internal/corpus"
	"github.com/leapstack-labs/dbrefs/internal/dag"
	"github.com/leapstack-labs/dbrefs/internal/engine"
	"github.com/leapstack-labs/dbrefs/internal/render"
	"github.com/leapstack-labs/dbrefs/internal/search"
	"github.com/leapstack-labs/dbrefs/internal/state"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

var errHistoryDisabled = errors.New("run history is disabled (state_path is empty)")

// SearchOptions holds options for the search command.
type SearchOptions struct {
	Types     []string
	Exact     bool
	NoRender  bool
	NoHistory bool
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	opts := &SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search <name>...",
		Short: "Find everything that uses the named database objects",
		Long: `Find the database objects, ETL packages and source files that use the
named objects, then everything that uses those, until nothing new is found.

Each name may be prefixed with a database, as in Sales:Orders. The result
is written as a collapsible tree and a force-directed graph (HTML) to the
output directory and summarised on stdout.`,
		Example: `  # Usages of one table
  dbrefs search Orders --types table

  # Names containing "Customer" in the Crm database, no HTML output
  dbrefs search Crm:Customer --exact=false --no-render

  # Limit the traversal to three levels
  dbrefs search usp_GetOrders --max-depth 3 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			report, err := RunSearch(cmd.Context(), cc, args, opts)
			if err != nil {
				return err
			}
			return printSearchReport(cc.Renderer, report)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Types, "types", nil, "Object kinds to search ("+strings.Join(kindFlagValues(), ", ")+"); default all")
	cmd.Flags().BoolVar(&opts.Exact, "exact", true, "Match names exactly (false matches substrings)")
	cmd.Flags().BoolVar(&opts.NoRender, "no-render", false, "Skip writing the HTML pages")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the state database")
	cmd.Flags().String("out", "", "Directory for the HTML pages")
	cmd.Flags().String("templates", "", "Directory overriding tree.html / graph.html")
	cmd.Flags().Int("workers", 0, "Parallel resolutions per level (0 = GOMAXPROCS)")
	cmd.Flags().Int("max-depth", 0, "Stop after this many levels (0 = unlimited)")
	cmd.Flags().Int("cache-size", 0, "Bound the usage cache (0 = unbounded)")

	_ = cmd.RegisterFlagCompletionFunc("types", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return kindFlagValues(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func kindFlagValues() []string {
	names := make([]string, len(core.DatabaseKinds))
	for i, k := range core.DatabaseKinds {
		names[i] = k.String()
	}
	return names
}

// SearchReport is the summary of one search.
type SearchReport struct {
	RunID       string        `json:"run_id,omitempty"`
	Query       []string      `json:"query"`
	Roots       []string      `json:"roots"`
	Corpus      corpus.Stats  `json:"corpus"`
	Nesting     int           `json:"nesting"`
	MaxChildren int           `json:"max_children"`
	Expanded    int           `json:"expanded"`
	Revisited   int           `json:"revisited"`
	Truncated   bool          `json:"truncated"`
	Nodes       int           `json:"nodes"`
	Links       int           `json:"links"`
	DeadEnds    []string      `json:"dead_ends"`
	Cycle       []string      `json:"cycle,omitempty"`
	Failures    []FailureLine `json:"failures,omitempty"`
	TreeFile    string        `json:"tree_file,omitempty"`
	GraphFile   string        `json:"graph_file,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// FailureLine is a resolution failure in a report.
type FailureLine struct {
	Object string `json:"object"`
	Error  string `json:"error"`
}

// Matched reports whether any root object was found.
func (r *SearchReport) Matched() bool {
	return len(r.Roots) > 0
}

// RunSearch indexes the configured corpus, expands the matching roots and
// renders the result. An empty match is not an error.
func RunSearch(ctx context.Context, cc *CommandContext, names []string, opts *SearchOptions) (*SearchReport, error) {
	cfg := cc.Cfg
	logger := cc.Logger
	start := time.Now()

	kinds, err := core.ParseKinds(opts.Types)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if !k.IsDatabase() {
			return nil, fmt.Errorf("kind %q cannot be searched for; use one of %s", k, strings.Join(kindFlagValues(), ", "))
		}
	}

	idx, err := corpus.Build(cfg.Search, logger)
	if err != nil {
		return nil, err
	}

	cache, err := search.NewCache(cfg.Tuning.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage cache: %w", err)
	}
	resolver := search.NewResolver(idx, cache, logger)

	report := &SearchReport{
		Query:    names,
		Roots:    []string{},
		Corpus:   idx.Stats(),
		DeadEnds: []string{},
	}

	roots := resolver.FindRoots(names, kinds, opts.Exact)
	if len(roots) == 0 {
		logger.Info("no objects matched", "names", names)
		return report, nil
	}

	eng, err := engine.New(engine.Config{
		Resolver: resolver,
		Workers:  cfg.Tuning.Workers,
		MaxDepth: cfg.Tuning.MaxDepth,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	res, err := eng.Expand(ctx, roots)
	if err != nil {
		return nil, fmt.Errorf("search interrupted: %w", err)
	}

	g := dag.Build(res.Roots)

	for _, r := range res.Roots {
		report.Roots = append(report.Roots, r.String())
	}
	report.Nesting = res.Nesting
	report.MaxChildren = res.MaxChildren
	report.Expanded = res.Expanded
	report.Revisited = res.Revisited
	report.Truncated = res.Truncated
	report.Nodes = g.NodeCount()
	report.Links = g.EdgeCount()
	report.DeadEnds = g.DeadEnds()
	if cyclic, path := g.HasCycle(); cyclic {
		report.Cycle = path
	}
	for _, f := range res.Failures {
		report.Failures = append(report.Failures, FailureLine{Object: f.Object.String(), Error: f.Error()})
	}

	if !opts.NoRender {
		rr, err := render.New(render.Config{
			OutputDir:    cfg.OutputDir,
			TemplatesDir: cfg.TemplatesDir,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		files, err := rr.WriteAll(res, g)
		if err != nil {
			return nil, err
		}
		report.TreeFile = files.Tree
		report.GraphFile = files.Graph
	}

	report.Duration = time.Since(start)

	if cfg.HistoryEnabled() && !opts.NoHistory {
		// Recording is best effort.
		if err := recordRun(ctx, cc, report, kinds, opts.Exact, start); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	return report, nil
}

func recordRun(ctx context.Context, cc *CommandContext, report *SearchReport, kinds []core.Kind, exact bool, start time.Time) error {
	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	kindNames := make([]string, len(kinds))
	for i, k := range kinds {
		kindNames[i] = k.String()
	}

	run := &state.Run{
		StartedAt:   start.UTC(),
		Duration:    report.Duration,
		Roots:       report.Query,
		Kinds:       kindNames,
		Exact:       exact,
		Nesting:     report.Nesting,
		MaxChildren: report.MaxChildren,
		Expanded:    report.Expanded,
		Revisited:   report.Revisited,
		Truncated:   report.Truncated,
		Nodes:       report.Nodes,
		Links:       report.Links,
		DeadEnds:    len(report.DeadEnds),
		TreeFile:    report.TreeFile,
		GraphFile:   report.GraphFile,
	}
	for _, f := range report.Failures {
		run.Failures = append(run.Failures, state.Failure{Object: f.Object, Error: f.Error})
	}

	if err := store.RecordRun(ctx, run); err != nil {
		return err
	}
	report.RunID = run.ID
	return nil
}

func printSearchReport(r *output.Renderer, report *SearchReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	if !report.Matched() {
		r.Println("no objects matched")
		return nil
	}

	styles := r.Styles()
	r.Header(1, "Usages of "+strings.Join(report.Query, ", "))
	for _, root := range report.Roots {
		r.Println("  " + styles.Object.Render(root))
	}
	r.Println("")

	r.Table(
		[]string{"Levels", "Widest level", "Expanded", "Revisited", "Nodes", "Links"},
		[][]string{{
			fmt.Sprint(report.Nesting),
			fmt.Sprint(report.MaxChildren),
			fmt.Sprint(report.Expanded),
			fmt.Sprint(report.Revisited),
			fmt.Sprint(report.Nodes),
			fmt.Sprint(report.Links),
		}},
	)
	r.Println("")

	if report.Truncated {
		r.Warning("traversal stopped at max_depth; deeper usages were not expanded")
	}
	for _, f := range report.Failures {
		r.Warning(fmt.Sprintf("could not resolve %s: %s", f.Object, f.Error))
	}
	if len(report.Cycle) > 0 {
		r.Muted("cycle: " + strings.Join(report.Cycle, " -> "))
	}

	if len(report.DeadEnds) > 0 {
		r.Header(2, fmt.Sprintf("Objects without a consumer (%d)", len(report.DeadEnds)))
		for _, d := range report.DeadEnds {
			r.StatusLine(d, "warning", "")
		}
		r.Println("")
	}

	if report.TreeFile != "" {
		r.StatusLine(report.TreeFile, "success", "tree")
		r.StatusLine(report.GraphFile, "success", "graph")
	}
	if report.RunID != "" {
		r.Muted("run " + report.RunID)
	}
	r.Success(fmt.Sprintf("Done in %s", report.Duration.Round(time.Millisecond)))
	return nil
}
