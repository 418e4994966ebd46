package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/frame"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	xtable "github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

var showCmd = &cobra.Command{
	Use:   "show [file.csv]",
	Short: "Print a cross-section or ticker file as a table",
	Long: `Show prints the last rows of a CSV file, or of a cross-section stored
in the SQLite journal.

Examples:
  xsection show output/c_trend_following_signal_21d.csv
  xsection show --run 01JYB2Z7M8T9Q4C3V5X6W7N8P0 --feature c_investable_universe_63d
  xsection show --feature rebalance_signal_SPY --rows 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showRunID   string
	showFeature string
	showRows    int
)

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showRunID, "run", "r", "", "stored run ID (default: latest run)")
	showCmd.Flags().StringVarP(&showFeature, "feature", "f", "", "stored cross-section to show")
	showCmd.Flags().IntVarP(&showRows, "rows", "n", 20, "rows to print from the end (0 = all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	var (
		t   *xtable.Table
		err error
	)
	switch {
	case len(args) == 1:
		t, err = frame.ReadFile(args[0], cfg.DateColumn)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
	case showFeature != "":
		db, err := journal.NewSQLite(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		runID, err := resolveRun(cmd, db, showRunID)
		if err != nil {
			return err
		}
		t, err = db.LoadCrossSection(cmd.Context(), runID, showFeature)
		if err != nil {
			return fmt.Errorf("load cross-section: %w", err)
		}
		fmt.Printf("Run %s: %s\n", runID, showFeature)
	default:
		return fmt.Errorf("give a CSV file or --feature")
	}

	renderTable(os.Stdout, t, showRows)
	return nil
}

// renderTable prints the last rows of t. limit <= 0 prints every row.
func renderTable(w io.Writer, t *xtable.Table, limit int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, name := range t.Names() {
		header = append(header, name)
	}
	tw.AppendHeader(header)

	first := 0
	if limit > 0 && t.Nrow() > limit {
		first = t.Nrow() - limit
	}
	for i := first; i < t.Nrow(); i++ {
		row := table.Row{}
		for _, v := range t.Row(i) {
			row = append(row, v.String())
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d rows", t.Nrow())})
	tw.Render()
}
