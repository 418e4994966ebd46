package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble cross-sections and build the trend-following portfolio",
	Long: `Run assembles the configured features, computes the rebalance signal of
the target symbol, and allocates equal weights to the top tickers of the
investable universe on every rebalance date.

Example:
  xsection run --config xsection.yaml --top-n 10`,
	RunE: runRun,
}

var (
	runFlagSet runFlags
	runTopN    int
	runTarget  string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runFlagSet.register(runCmd.Flags())
	runCmd.Flags().IntVarP(&runTopN, "top-n", "n", 0, "tickers held after each rebalance")
	runCmd.Flags().StringVar(&runTarget, "target", "", "symbol whose high/low range drives rebalancing")
}

func runRun(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()
	if fs.Changed("top-n") {
		cfg.Portfolio.TopN = runTopN
	}
	if fs.Changed("target") {
		cfg.Rebalance.TargetSymbol = runTarget
	}
	if err := runFlagSet.apply(fs); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.PortfolioEnabled() {
		return fmt.Errorf("portfolio is disabled: set rebalance.target_symbol and portfolio.top_n")
	}

	out, err := execute(cmd.Context(), true)
	if out == nil {
		return err
	}
	if rerr := report(out); rerr != nil && err == nil {
		err = rerr
	}
	if a := out.Allocation; a != nil {
		w := a.Weights
		fmt.Printf("\n✓ Portfolio: %d weighted dates, top %d of %d tickers\n", len(w.Dates), cfg.Portfolio.TopN, len(w.Tickers))
		if n := len(w.Dates); n > 0 {
			last := w.Dates[n-1]
			fmt.Printf("  Latest allocation (%s):\n", last.Format("2006-01-02"))
			for i, t := range w.Tickers {
				if v := w.Values[i][n-1]; !v.IsZero() {
					fmt.Printf("    %-10s %s\n", t, v.StringFixed(4))
				}
			}
		}
	}
	return err
}
