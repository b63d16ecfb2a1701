package notify

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// DefaultMaxFailures bounds the failed tests listed in one notification
const DefaultMaxFailures = 10

// Sink collects failed nodes during a run and notifies on Flush
type Sink struct {
	manager     *Manager
	maxFailures int
	baseDir     string

	mu     sync.Mutex
	failed []FailedTest
	counts map[report.Status]int
}

// NewSink creates an output sink that notifies through manager.
// Evidence paths are listed relative to baseDir.
func NewSink(manager *Manager, baseDir string) *Sink {
	return &Sink{
		manager:     manager,
		maxFailures: DefaultMaxFailures,
		baseDir:     baseDir,
		counts:      make(map[report.Status]int),
	}
}

func (s *Sink) Accept(node *report.Node) {
	status := node.Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[status]++
	if status != report.StatusFailed || len(s.failed) >= s.maxFailures {
		return
	}

	rec := output.NewTestRecord(node, s.baseDir)
	ft := FailedTest{Name: rec.Name, Test: rec.Test}
	for _, entry := range rec.Logs {
		if entry.Level == report.LevelFail && entry.Message != rec.Failure {
			ft.Errors = append(ft.Errors, entry.Message)
		}
	}
	if len(ft.Errors) == 0 && rec.Failure != "" {
		ft.Errors = []string{rec.Failure}
	}
	for _, ev := range rec.Evidence {
		ft.Evidence = append(ft.Evidence, ev.Path)
	}
	s.failed = append(s.failed, ft)
}

func (s *Sink) Flush(summary output.RunSummary) error {
	s.mu.Lock()
	rs := &RunSummary{
		Name:          summary.Name,
		Environment:   summary.Environment,
		PassedTests:   s.counts[report.StatusPassed],
		FailedTests:   s.counts[report.StatusFailed],
		SkippedTests:  s.counts[report.StatusSkipped],
		Unfinished:    summary.Leaked,
		Duration:      summary.Duration,
		FailedResults: s.failed,
	}
	rs.TotalTests = rs.PassedTests + rs.FailedTests + rs.SkippedTests
	s.mu.Unlock()

	return s.manager.Notify(context.Background(), rs)
}
