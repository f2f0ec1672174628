package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbrefs/internal/state"
	"github.com/leapstack-labs/dbrefs/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered pages and the run history",
		Long: `Start an HTTP server exposing the output directory, where the tree
and graph pages are written, and the run history as JSON under /api/runs.`,
		Example: `  dbrefs serve
  dbrefs serve --addr :9000 --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			var store state.Store
			if cc.Cfg.HistoryEnabled() {
				s, err := cc.OpenStore()
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				store = s
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := ui.NewServer(ui.Config{
				Store:     store,
				OutputDir: cc.Cfg.OutputDir,
				Addr:      addr,
				Logger:    cc.Logger,
			})
			cc.Renderer.Success("Serving " + cc.Cfg.OutputDir + " on http://" + addr)
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ui.DefaultAddr, "Listen address")
	cmd.Flags().String("out", "", "Directory to serve (defaults to output_dir)")

	return cmd
}
