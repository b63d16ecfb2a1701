package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var limitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs",
	Long: `List the most recent runs in the history database, newest first.
Runs that never finished are marked with *

Examples:
  hitreport history
  hitreport history --limit 50 --db sqlite://reports/history.db`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().StringVar(&dbFlag, "db", "", "History database (default: historyDSN from the config)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limitFlag)
	if err != nil {
		return withExitCode(ExitReportError, err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tNAME\tENV\tPASSED\tFAILED\tSKIPPED\tDURATION")
	for _, run := range runs {
		failed := fmt.Sprint(run.Failed)
		if run.Failed > 0 {
			failed = red(failed)
		}
		id := run.ID
		if !run.Finished {
			id = yellow(id + "*")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			id,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Name,
			run.Environment,
			run.Passed,
			failed,
			run.Skipped,
			run.Duration.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
