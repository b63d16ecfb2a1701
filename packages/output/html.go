package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Version        string
	Name           string
	Environment    string
	Summary        HTMLSummary
	Tests          []HTMLTest
	Categories     []HTMLCategory
	Duration       float64
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
	P50            float64
	P95            float64
	P99            float64
	Leaked         int
}

// HTMLSummary represents the test summary for HTML output
type HTMLSummary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Evidence int
}

// HTMLCategory is the per-category row of the dashboard
type HTMLCategory struct {
	Name    string
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// HTMLTest represents a single test result for HTML output
type HTMLTest struct {
	Name        string
	Test        string
	Worker      int
	Status      string
	StatusClass string
	Duration    float64
	Started     string
	Failure     string
	Description []string
	Categories  []string
	Logs        []HTMLLog
}

// HTMLLog is one step log line; Evidence is relative to the report directory
type HTMLLog struct {
	Time     string
	Level    string
	Message  string
	LinkText string
	LinkURL  string
	Evidence string
}

// HTMLSink renders a standalone HTML report on Flush
type HTMLSink struct {
	mu      sync.Mutex
	writer  io.Writer
	baseDir string
	version string
	results []HTMLTest
}

// HTMLOption is a functional option for HTMLSink
type HTMLOption func(*HTMLSink)

// NewHTMLSink creates a new HTML sink
func NewHTMLSink(opts ...HTMLOption) *HTMLSink {
	f := &HTMLSink{
		writer:  os.Stdout,
		results: make([]HTMLTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLSink) {
		f.writer = w
	}
}

// HTMLWithBaseDir sets the directory the report is written to. Evidence paths
// are rendered relative to it.
func HTMLWithBaseDir(dir string) HTMLOption {
	return func(f *HTMLSink) {
		f.baseDir = dir
	}
}

// HTMLWithVersion sets the version shown in the report footer
func HTMLWithVersion(version string) HTMLOption {
	return func(f *HTMLSink) {
		f.version = version
	}
}

// Accept converts a finalized node into a report row
func (f *HTMLSink) Accept(node *report.Node) {
	status := node.Status()
	test := HTMLTest{
		Name:        node.Name,
		Test:        node.Key.Test,
		Worker:      node.Worker,
		Status:      status.String(),
		StatusClass: status.String(),
		Duration:    float64(node.Duration().Milliseconds()),
		Started:     node.StartTime.Format("15:04:05.000"),
		Failure:     node.FailureMessage,
		Description: node.Description,
		Categories:  node.Categories,
	}

	for _, entry := range node.Logs {
		l := HTMLLog{
			Time:    entry.Time.Format("15:04:05.000"),
			Level:   string(entry.Level),
			Message: entry.Message,
		}
		if entry.Link != nil {
			l.LinkText = entry.Link.Text
			l.LinkURL = entry.Link.URL
		}
		if entry.Evidence != nil {
			l.Evidence = relativeEvidence(f.baseDir, entry.Evidence.Path)
		}
		test.Logs = append(test.Logs, l)
	}

	f.mu.Lock()
	f.results = append(f.results, test)
	f.mu.Unlock()
}

// Flush writes the accumulated HTML output
func (f *HTMLSink) Flush(summary RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sum HTMLSummary
	categories := make(map[string]*HTMLCategory)
	for _, t := range f.results {
		sum.Total++
		for _, l := range t.Logs {
			if l.Evidence != "" {
				sum.Evidence++
			}
		}
		for _, name := range t.Categories {
			c, ok := categories[name]
			if !ok {
				c = &HTMLCategory{Name: name}
				categories[name] = c
			}
			c.Total++
			countStatus(t.Status, &c.Passed, &c.Failed, &c.Skipped)
		}
		countStatus(t.Status, &sum.Passed, &sum.Failed, &sum.Skipped)
	}

	var passedPct, failedPct, skippedPct float64
	if sum.Total > 0 {
		passedPct = float64(sum.Passed) / float64(sum.Total) * 100
		failedPct = float64(sum.Failed) / float64(sum.Total) * 100
		skippedPct = float64(sum.Skipped) / float64(sum.Total) * 100
	}

	output := HTMLOutput{
		Version:        f.version,
		Name:           summary.Name,
		Environment:    summary.Environment,
		Summary:        sum,
		Tests:          f.results,
		Duration:       float64(summary.Duration.Milliseconds()),
		Time:           runTime(summary).Format("2006-01-02 15:04:05"),
		PassedPercent:  passedPct,
		FailedPercent:  failedPct,
		SkippedPercent: skippedPct,
		Leaked:         summary.Leaked,
	}
	if s := summary.Stats; s != nil {
		output.P50 = float64(s.P50.Milliseconds())
		output.P95 = float64(s.P95.Milliseconds())
		output.P99 = float64(s.P99.Milliseconds())
	}
	for _, c := range categories {
		output.Categories = append(output.Categories, *c)
	}
	sort.Slice(output.Categories, func(i, j int) bool {
		return output.Categories[i].Name < output.Categories[j].Name
	})

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	return tmpl.Execute(f.writer, output)
}

func countStatus(status string, passed, failed, skipped *int) {
	switch status {
	case report.StatusPassed.String():
		*passed++
	case report.StatusFailed.String():
		*failed++
	case report.StatusSkipped.String():
		*skipped++
	}
}
