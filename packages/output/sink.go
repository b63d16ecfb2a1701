package output

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/stats"
)

// Sink consumes finalized report nodes.
type Sink interface {
	Accept(node *report.Node)
	Flush(summary RunSummary) error
}

// RunSummary describes a completed run
type RunSummary struct {
	Name        string
	Environment string
	StartTime   time.Time
	Duration    time.Duration
	// Leaked counts executions that started but were never finalized.
	Leaked int
	Stats  *stats.Summary
}

// Multi fans nodes out to several sinks.
type Multi []Sink

func (m Multi) Accept(node *report.Node) {
	for _, s := range m {
		s.Accept(node)
	}
}

// Flush flushes every sink and returns their errors joined.
func (m Multi) Flush(summary RunSummary) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// relativeEvidence rewrites path relative to baseDir when possible, so a report
// can be moved together with its evidence folder.
func relativeEvidence(baseDir, path string) string {
	if baseDir == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
