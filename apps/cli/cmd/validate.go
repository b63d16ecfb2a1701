package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/webdriver"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	showConfigFlag  bool
	checkDriverFlag bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Long: `Load the configuration, apply .env files and HITREPORT_ environment
overrides, resolve templates and validate the result.

Exit codes:
  0  configuration is valid
  3  configuration is invalid
  4  the WebDriver endpoint is not ready (with --check-webdriver)

Examples:
  hitreport validate
  hitreport validate --config ci/hitreport.yaml --show
  hitreport validate --check-webdriver`,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().BoolVar(&showConfigFlag, "show", false, "Print the effective configuration")
	validateCmd.Flags().BoolVar(&checkDriverFlag, "check-webdriver", false, "Check that the configured WebDriver endpoint is ready")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	out := cmd.OutOrStdout()

	cfg, source, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	fmt.Fprintf(out, "%s %s\n", green("✓"), source)

	if showConfigFlag {
		fmt.Fprintf(out, "\n%s", cfg.String())
	}

	if checkDriverFlag && cfg.WebDriverURL != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		ready, message, err := webdriver.NewClient(cfg.WebDriverURL).Ready(ctx)
		if err != nil {
			return withExitCode(ExitNetworkError, fmt.Errorf("webdriver %s: %w", cfg.WebDriverURL, err))
		}
		if !ready {
			return withExitCode(ExitNetworkError, fmt.Errorf("webdriver %s is not ready: %s", cfg.WebDriverURL, message))
		}
		fmt.Fprintf(out, "%s webdriver %s ready\n", green("✓"), cfg.WebDriverURL)
	}
	return nil
}
