package cmd

// Exit codes for hitreport CLI
const (
	// ExitSuccess indicates the command succeeded
	ExitSuccess = 0

	// ExitTestFailure indicates the rendered run has failed tests
	ExitTestFailure = 1

	// ExitReportError indicates a report could not be read or written
	ExitReportError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates the WebDriver endpoint is unreachable
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
