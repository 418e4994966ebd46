package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/server"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over HTTP",
	Long: `Serve exposes the SQLite journal as a read-only JSON API:

  GET /runs
  GET /runs/{runID}
  GET /runs/{runID}/features/{feature}[?format=csv]
  GET /runs/{runID}/weights
  GET /metrics
  GET /healthz

Example:
  xsection serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	db, err := journal.NewSQLite(cfg.Output.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("✓ Serving %s on %s\n", cfg.Output.DBPath, addr)
	return server.New(db, metrics.NewServer(), slog.Default()).Serve(ctx, addr)
}
