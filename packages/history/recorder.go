package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/stats"
	"github.com/google/uuid"
)

// Recorder is an output sink that writes every finalized node to the store.
// Write errors do not interrupt the run; they are returned from Flush.
type Recorder struct {
	store   *Store
	run     *Run
	baseDir string

	mu   sync.Mutex
	errs []error
}

// NewRecorder begins a new run in store
func NewRecorder(ctx context.Context, store *Store, name, environment, baseDir string) (*Recorder, error) {
	run := &Run{
		ID:          uuid.NewString(),
		Name:        name,
		Environment: environment,
		StartedAt:   time.Now(),
	}
	if err := store.BeginRun(ctx, run); err != nil {
		return nil, err
	}
	return &Recorder{store: store, run: run, baseDir: baseDir}, nil
}

// RunID returns the id of the run being recorded
func (r *Recorder) RunID() string {
	return r.run.ID
}

func (r *Recorder) Accept(node *report.Node) {
	rec := output.NewTestRecord(node, r.baseDir)
	if err := r.store.SaveTest(context.Background(), r.run.ID, rec); err != nil {
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	}
}

func (r *Recorder) Flush(summary output.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := *r.run
	run.Duration = summary.Duration
	run.Leaked = summary.Leaked
	if s := summary.Stats; s != nil {
		run.Total = s.Total
		run.Passed = s.Passed
		run.Failed = s.Failed
		run.Skipped = s.Skipped
	}
	if err := r.store.FinishRun(context.Background(), &run); err != nil {
		r.errs = append(r.errs, err)
	}
	return errors.Join(r.errs...)
}

// Replay feeds the records of a stored run into sink and flushes it, so any
// output format can be produced from history.
func Replay(run *Run, records []output.TestRecord, sink output.Sink) error {
	collector := stats.NewCollector()
	var errs []error
	for _, rec := range records {
		node, err := rec.Node()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		collector.Accept(node)
		sink.Accept(node)
	}
	summary := output.RunSummary{
		Name:        run.Name,
		Environment: run.Environment,
		StartTime:   run.StartedAt,
		Duration:    run.Duration,
		Leaked:      run.Leaked,
		Stats:       collector.Summary(),
	}
	if err := sink.Flush(summary); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
