package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	xtable "github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in the SQLite journal",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runsReport bool

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().BoolVar(&runsReport, "org", false, "print the latest run as an org report")
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := journal.NewSQLite(cfg.Output.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Printf("No runs in %s\n", cfg.Output.DBPath)
		return nil
	}

	if runsReport {
		s, err := journal.RunOrg(runs[0])
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Run", "Created", "Range", "Tickers", "Features", "Failed"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.RunID,
			r.Created.Local().Format(time.DateTime),
			xtable.FormatTime(r.Start) + " .. " + xtable.FormatTime(r.End),
			len(r.Tickers),
			len(r.Features),
			strings.Join(r.Failed, ", "),
		})
	}
	tw.Render()
	return nil
}

// resolveRun returns runID, or the most recent run when it is empty.
func resolveRun(cmd *cobra.Command, db *journal.SQLite, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s", cfg.Output.DBPath)
	}
	return runs[0].RunID, nil
}
