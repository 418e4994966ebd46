package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/pipeline"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble cross-sectional feature tables",
	Long: `Load every ticker file in the input directory, derive missing features,
and write one table per requested feature with a row per date and a column
per ticker.

Example:
  xsection assemble --input data/curated --start 2020-01-01 --end 2025-06-30 \
    --features c_trend_following_signal_21d,c_investable_universe_63d`,
	RunE: runAssemble,
}

// runFlags are shared by assemble and run. Only flags the user set override
// the loaded configuration.
type runFlags struct {
	start, end  string
	input       string
	out         string
	features    []string
	identifiers []string
	formats     []string
	skipMissing bool
	noDerive    bool
	workers     int
}

var assembleFlags runFlags

func init() {
	rootCmd.AddCommand(assembleCmd)
	assembleFlags.register(assembleCmd.Flags())
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.start, "start", "", "first date to keep (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "last date to keep (YYYY-MM-DD)")
	fs.StringVarP(&f.input, "input", "i", "", "directory of <TICKER>.csv files")
	fs.StringVarP(&f.out, "out", "o", "", "output directory")
	fs.StringSliceVarP(&f.features, "features", "f", nil, "features to assemble")
	fs.StringSliceVarP(&f.identifiers, "tickers", "t", nil, "tickers to load (default: every file in --input)")
	fs.StringSliceVar(&f.formats, "format", nil, "output formats: csv, xlsx, sqlite")
	fs.BoolVar(&f.skipMissing, "skip-missing", false, "leave the ticker's column null when it lacks a feature instead of failing the feature")
	fs.BoolVar(&f.noDerive, "no-derive", false, "use only the columns present in the input files")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = number of CPUs)")
}

func (f *runFlags) apply(fs *pflag.FlagSet) error {
	if fs.Changed("start") {
		cfg.StartDate = f.start
	}
	if fs.Changed("end") {
		cfg.EndDate = f.end
	}
	if fs.Changed("input") {
		cfg.InputDir = f.input
	}
	if fs.Changed("out") {
		cfg.Output.Dir = f.out
	}
	if fs.Changed("features") {
		cfg.Features = f.features
	}
	if fs.Changed("tickers") {
		cfg.Identifiers = f.identifiers
	}
	if fs.Changed("format") {
		cfg.Output.Formats = f.formats
	}
	if fs.Changed("skip-missing") && f.skipMissing {
		cfg.MissingFeature = "skip"
	}
	if fs.Changed("no-derive") {
		cfg.Derive = !f.noDerive
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	return cfg.Validate()
}

func runAssemble(cmd *cobra.Command, args []string) error {
	// cross-sections only
	cfg.Rebalance.TargetSymbol = ""
	if err := assembleFlags.apply(cmd.Flags()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	out, err := execute(cmd.Context(), false)
	if err != nil {
		return err
	}
	return report(out)
}

// execute runs the pipeline with an interrupt-aware context.
func execute(parent context.Context, withPortfolio bool) (*pipeline.Outcome, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	p := pipeline.New(cfg, slog.Default(), metrics.New())
	j, err := p.OpenJournal()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	fmt.Printf("Assembling %d features from %s\n", len(cfg.Features), cfg.InputDir)
	fmt.Printf("  Range: %s .. %s\n", cfg.StartDate, cfg.EndDate)
	fmt.Printf("  Output: %s %v\n\n", cfg.Output.Dir, cfg.Output.Formats)

	out, runErr := p.Run(ctx, j, withPortfolio)
	if err := j.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close journal: %w", err)
	}
	return out, runErr
}

// report prints a run summary and fails when any feature failed.
func report(out *pipeline.Outcome) error {
	res := out.Result
	fmt.Printf("✓ Run %s\n", out.Run.RunID)
	fmt.Printf("  Tickers: %d\n", len(out.Run.Tickers))
	for _, f := range res.Features {
		if t, ok := res.Tables[f]; ok {
			fmt.Printf("  ✓ %s (%d dates x %d tickers)\n", f, t.Nrow(), t.Ncol()-1)
			continue
		}
		fmt.Printf("  ✗ %s: %v\n", f, res.Errors[f])
	}
	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d features failed", len(failed), len(res.Features))
	}
	return nil
}
