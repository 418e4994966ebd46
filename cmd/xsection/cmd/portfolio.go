package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show or export the weights of a stored run",
	Long: `Portfolio prints the allocation recorded by "xsection run" as a
ticker by date table, or writes it as CSV.

Examples:
  xsection portfolio
  xsection portfolio --run 01JYB2Z7M8T9Q4C3V5X6W7N8P0 --dates 10
  xsection portfolio --csv weights.csv`,
	Args: cobra.NoArgs,
	RunE: runPortfolio,
}

var (
	portfolioRunID string
	portfolioDates int
	portfolioCSV   string
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.Flags().StringVarP(&portfolioRunID, "run", "r", "", "stored run ID (default: latest run)")
	portfolioCmd.Flags().IntVarP(&portfolioDates, "dates", "n", 5, "latest rebalance dates to print (0 = all)")
	portfolioCmd.Flags().StringVar(&portfolioCSV, "csv", "", "write the full weight table to this file")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	db, err := journal.NewSQLite(cfg.Output.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	runID, err := resolveRun(cmd, db, portfolioRunID)
	if err != nil {
		return err
	}
	w, err := db.LoadWeights(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}

	if portfolioCSV != "" {
		t, err := w.Table()
		if err != nil {
			return err
		}
		if err := journal.WriteFileCSV(portfolioCSV, t); err != nil {
			return fmt.Errorf("write %s: %w", portfolioCSV, err)
		}
		fmt.Printf("✓ Wrote %d tickers x %d dates to %s\n", len(w.Tickers), len(w.Dates), portfolioCSV)
		return nil
	}

	t, err := latest(w, portfolioDates).Table()
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %d rebalance dates\n", runID, len(w.Dates))
	renderTable(os.Stdout, t, 0)
	return nil
}

// latest keeps the last n dates of w, and only the tickers holding weight in them.
func latest(w *portfolio.Weights, n int) *portfolio.Weights {
	first := 0
	if n > 0 && len(w.Dates) > n {
		first = len(w.Dates) - n
	}
	out := &portfolio.Weights{Dates: w.Dates[first:]}
	for i, t := range w.Tickers {
		vals := w.Values[i][first:]
		for _, v := range vals {
			if !v.IsZero() {
				out.Tickers = append(out.Tickers, t)
				out.Values = append(out.Values, vals)
				break
			}
		}
	}
	return out
}
