package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a shell completion script for hitreport. Run ids of
'hitreport report' are completed from the history database.

Examples:
  source <(hitreport completion bash)
  hitreport completion zsh > "${fpath[1]}/_hitreport"
  hitreport completion fish > ~/.config/fish/completions/hitreport.fish
  hitreport completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// completeRunIDs offers the recent run ids, described by name and start time
func completeRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := openHistory(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 20)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, fmt.Sprintf("%s\t%s %s", run.ID, run.Name, run.StartedAt.Format("2006-01-02 15:04")))
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
	reportCmd.ValidArgsFunction = completeRunIDs
}
