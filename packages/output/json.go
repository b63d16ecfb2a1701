package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Name        string       `json:"name,omitempty"`
	Environment string       `json:"environment,omitempty"`
	Summary     JSONSummary  `json:"summary"`
	Tests       []TestRecord `json:"tests"`
	Duration    float64      `json:"duration"`
	Time        string       `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Leaked   int     `json:"leaked,omitempty"`
	Evidence int     `json:"evidence"`
	P50      float64 `json:"p50,omitempty"`
	P95      float64 `json:"p95,omitempty"`
	P99      float64 `json:"p99,omitempty"`
}

// JSONSink writes all accepted nodes as one JSON document on Flush
type JSONSink struct {
	mu      sync.Mutex
	writer  io.Writer
	baseDir string
	records []TestRecord
}

type JSONOption func(*JSONSink)

func NewJSONSink(opts ...JSONOption) *JSONSink {
	f := &JSONSink{
		writer:  os.Stdout,
		records: make([]TestRecord, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONSink) {
		f.writer = w
	}
}

// JSONWithBaseDir makes evidence paths relative to dir.
func JSONWithBaseDir(dir string) JSONOption {
	return func(f *JSONSink) {
		f.baseDir = dir
	}
}

func (f *JSONSink) Accept(node *report.Node) {
	rec := NewTestRecord(node, f.baseDir)

	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
}

// Flush writes the accumulated JSON output
func (f *JSONSink) Flush(summary RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sum := JSONSummary{Leaked: summary.Leaked}
	for _, rec := range f.records {
		sum.Total++
		switch rec.Status {
		case report.StatusPassed.String():
			sum.Passed++
		case report.StatusFailed.String():
			sum.Failed++
		case report.StatusSkipped.String():
			sum.Skipped++
		}
		sum.Evidence += len(rec.Evidence)
	}
	if s := summary.Stats; s != nil {
		sum.P50 = float64(s.P50.Milliseconds())
		sum.P95 = float64(s.P95.Milliseconds())
		sum.P99 = float64(s.P99.Milliseconds())
	}

	output := JSONOutput{
		Name:        summary.Name,
		Environment: summary.Environment,
		Summary:     sum,
		Tests:       f.records,
		Duration:    float64(summary.Duration.Milliseconds()),
		Time:        runTime(summary).Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func runTime(summary RunSummary) time.Time {
	if summary.StartTime.IsZero() {
		return time.Now()
	}
	return summary.StartTime
}
