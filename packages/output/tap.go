package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// TAPSink writes accepted nodes in TAP (Test Anything Protocol) format on Flush
type TAPSink struct {
	mu      sync.Mutex
	writer  io.Writer
	baseDir string
	results []tapResult
}

type tapResult struct {
	name     string
	status   report.Status
	reason   string
	failures []string
	evidence []string
}

type TAPOption func(*TAPSink)

func NewTAPSink(opts ...TAPOption) *TAPSink {
	f := &TAPSink{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPSink) {
		f.writer = w
	}
}

// TAPWithBaseDir makes evidence paths relative to dir.
func TAPWithBaseDir(dir string) TAPOption {
	return func(f *TAPSink) {
		f.baseDir = dir
	}
}

func (f *TAPSink) Accept(node *report.Node) {
	tr := tapResult{
		name:   node.Name,
		status: node.Status(),
		reason: node.FailureMessage,
	}
	if tr.status == report.StatusFailed {
		for _, entry := range node.Failures() {
			tr.failures = append(tr.failures, entry.Message)
		}
		for _, ev := range node.Evidence {
			tr.evidence = append(tr.evidence, relativeEvidence(f.baseDir, ev.Path))
		}
	}

	f.mu.Lock()
	f.results = append(f.results, tr)
	f.mu.Unlock()
}

// Flush writes the accumulated TAP output
func (f *TAPSink) Flush(summary RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(f.results))

	for i, r := range f.results {
		number := i + 1
		switch r.status {
		case report.StatusSkipped:
			reason := r.reason
			if reason == "" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", number, r.name, firstLine(reason))
		case report.StatusPassed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", number, r.name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", number, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.reason))
			fmt.Fprintf(f.writer, "  severity: fail\n")
			if len(r.failures) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range r.failures {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			if len(r.evidence) > 0 {
				fmt.Fprintf(f.writer, "  evidence:\n")
				for _, p := range r.evidence {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(p))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	if summary.Leaked > 0 {
		fmt.Fprintf(f.writer, "# %d executions never finished\n", summary.Leaked)
	}
	fmt.Fprintln(f.writer)

	return nil
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`\\") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
