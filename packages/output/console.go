package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/fatih/color"
)

// formatValue truncates long values for display
func formatValue(v any, maxLen int) string {
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// ConsoleSink prints each execution as it finishes and a summary on Flush.
type ConsoleSink struct {
	mu      sync.Mutex
	writer  io.Writer
	verbose bool
	noColor bool
	baseDir string
}

type ConsoleOption func(*ConsoleSink)

func NewConsoleSink(opts ...ConsoleOption) *ConsoleSink {
	f := &ConsoleSink{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleSink) {
		f.writer = w
	}
}

// WithVerbose also prints description lines, passing steps and evidence paths.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleSink) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleSink) {
		f.noColor = nc
	}
}

// WithBaseDir prints evidence paths relative to dir.
func WithBaseDir(dir string) ConsoleOption {
	return func(f *ConsoleSink) {
		f.baseDir = dir
	}
}

func (f *ConsoleSink) Accept(node *report.Node) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	f.mu.Lock()
	defer f.mu.Unlock()

	switch node.Status() {
	case report.StatusSkipped:
		fmt.Fprintf(f.writer, "  %s %s", yellow("-"), node.Name)
		if node.FailureMessage != "" {
			fmt.Fprintf(f.writer, " (%s)", node.FailureMessage)
		}
		fmt.Fprintf(f.writer, "\n")
		return
	case report.StatusPassed:
		fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), node.Name, cyan(fmt.Sprintf("(%dms)", node.Duration().Milliseconds())))
	default:
		fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), node.Name, cyan(fmt.Sprintf("(%dms)", node.Duration().Milliseconds())))
	}

	if f.verbose {
		for _, line := range node.Description {
			fmt.Fprintf(f.writer, "    %s\n", line)
		}
	}

	for _, entry := range node.Logs {
		switch entry.Level {
		case report.LevelFail, report.LevelError:
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), formatValue(entry.Message, 300))
		case report.LevelWarn:
			if f.verbose {
				fmt.Fprintf(f.writer, "    %s %s\n", yellow("!"), entry.Message)
			}
		default:
			if f.verbose {
				fmt.Fprintf(f.writer, "    %s %s\n", green("·"), entry.Message)
			}
		}
		if entry.Link != nil && f.verbose {
			fmt.Fprintf(f.writer, "      %s\n", entry.Link.URL)
		}
		if entry.Evidence != nil && (f.verbose || entry.Level == report.LevelFail) {
			fmt.Fprintf(f.writer, "      Evidence: %s\n", relativeEvidence(f.baseDir, entry.Evidence.Path))
		}
	}
}

func (f *ConsoleSink) Flush(summary RunSummary) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	f.mu.Lock()
	defer f.mu.Unlock()

	s := summary.Stats
	fmt.Fprintf(f.writer, "\n")
	if summary.Name != "" {
		fmt.Fprintf(f.writer, "%s\n", bold(summary.Name))
	}
	fmt.Fprintf(f.writer, "Tests: ")
	if s != nil {
		if s.Passed > 0 {
			fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Passed)))
		}
		if s.Failed > 0 {
			fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed)))
		}
		if s.Skipped > 0 {
			fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", s.Skipped)))
		}
		fmt.Fprintf(f.writer, "%d total\n", s.Total)
		if s.Total > s.Skipped {
			fmt.Fprintf(f.writer, "Durations: p50 %dms, p95 %dms, max %dms\n",
				s.P50.Milliseconds(), s.P95.Milliseconds(), s.Max.Milliseconds())
		}
	} else {
		fmt.Fprintf(f.writer, "no statistics\n")
	}
	if summary.Leaked > 0 {
		fmt.Fprintf(f.writer, "%s\n", red(fmt.Sprintf("%d executions never finished", summary.Leaked)))
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", summary.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
	return nil
}

// FormatError prints err in the console style.
func FormatError(w io.Writer, err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(w, "%s %v\n", red("Error:"), err)
}

// FormatHeader prints the tool banner.
func FormatHeader(w io.Writer, version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", bold("hitreport"), version)
}
