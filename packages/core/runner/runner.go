package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/core/lifecycle"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/softassert"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the default number of tests executing at once
	DefaultConcurrency = 5
)

// ErrCancelled is the skip cause of tests that never started because the run was cancelled.
var ErrCancelled = errors.New("run cancelled before test started")

type Runner struct {
	coordinator *lifecycle.Coordinator
	config      *Config
	capturer    softassert.Capturer
	limiter     *rate.Limiter
	logger      *slog.Logger
}

type Config struct {
	Environment string
	NameFilter  string
	TagsFilter  []string
	Concurrency int
	// StartRate limits test starts per second; zero means unlimited.
	StartRate float64
	// Attributes are added to every test's attributes, e.g. environment or browser.
	Attributes map[string]string
	// EvidenceOnFailure captures evidence for each failed soft assertion.
	EvidenceOnFailure bool
	EvidenceOnSuccess bool
	WaitFor           *WaitForConfig
	BeforeEach        []Hook
	AfterEach         []Hook
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithCapturer sets the evidence capturer used by soft assertion sessions.
func WithCapturer(c softassert.Capturer) Option {
	return func(r *Runner) {
		r.capturer = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(coordinator *lifecycle.Coordinator, cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{
		coordinator: coordinator,
		config:      cfg,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	if cfg.StartRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.StartRate), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Test is one runnable test. Func is called with a fresh Execution per invocation.
type Test struct {
	Name        string
	DisplayName string
	Categories  []string
	Attributes  map[string]string
	Parameters  map[string]string
	// Session is the driver session handle the test uses, for evidence capture.
	Session string
	Skip    string
	Only    bool
	Func    func(e *Execution)
}

type RunResult struct {
	Results  []*TestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	// Leaked lists executions that were started but never finalized.
	Leaked []report.ExecutionKey
}

type TestResult struct {
	Name       string
	Key        report.ExecutionKey
	Status     report.Status
	SkipReason string
	Duration   time.Duration
	Error      error
}

// Run executes tests on a bounded pool of workers and reports each one through
// the coordinator. Results are in the order of tests.
func (r *Runner) Run(ctx context.Context, tests []*Test) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	if err := r.waitForService(ctx, r.config.WaitFor); err != nil {
		return nil, err
	}

	hasOnly := false
	for _, t := range tests {
		if t.Only {
			hasOnly = true
			break
		}
	}

	var selected []*Test
	for _, t := range tests {
		if !r.shouldRun(t, hasOnly) {
			result.Results = append(result.Results, &TestResult{
				Name:       t.Name,
				Status:     report.StatusSkipped,
				SkipReason: "filtered out",
			})
			result.Skipped++
			continue
		}
		selected = append(selected, t)
	}

	for _, tr := range r.runParallel(ctx, selected) {
		result.Results = append(result.Results, tr)
		switch tr.Status {
		case report.StatusPassed:
			result.Passed++
		case report.StatusFailed:
			result.Failed++
		case report.StatusSkipped:
			result.Skipped++
		}
	}

	result.Leaked = r.coordinator.Leaked()
	if len(result.Leaked) > 0 {
		r.logger.Warn("report nodes were never finalized", "count", len(result.Leaked))
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runParallel(ctx context.Context, tests []*Test) []*TestResult {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*TestResult, len(tests))
	var wg sync.WaitGroup
	sem := make(chan int, concurrency)
	for w := 1; w <= concurrency; w++ {
		sem <- w
	}

	for i, t := range tests {
		wg.Add(1)
		worker := <-sem // acquire a worker slot

		go func(idx int, test *Test, worker int) {
			defer wg.Done()
			defer func() { sem <- worker }() // release

			results[idx] = r.runTest(ctx, test, worker)
		}(i, t, worker)
	}

	wg.Wait()
	return results
}

func (r *Runner) runTest(ctx context.Context, t *Test, worker int) *TestResult {
	key := report.ExecutionKey{Test: t.Name, Invocation: uuid.NewString()}
	result := &TestResult{Name: t.Name, Key: key}

	r.coordinator.OnStart(ctx, key, lifecycle.Metadata{
		DisplayName: t.DisplayName,
		Attributes:  r.attributes(t),
		Categories:  t.Categories,
		Parameters:  t.Parameters,
		Session:     t.Session,
		Worker:      worker,
	})

	if t.Skip != "" {
		return r.skip(ctx, result, t.Skip, errors.New(t.Skip))
	}
	if err := r.wait(ctx); err != nil {
		return r.skip(ctx, result, err.Error(), err)
	}

	start := time.Now()
	exec := r.newExecution(ctx, key, t)
	if err := r.executeHooks(exec, r.config.BeforeEach); err != nil {
		exec.failure = err
	} else if !exec.skipped {
		exec.run(t.Func)
	}
	if err := r.executeAfterHooks(exec, r.config.AfterEach); err != nil && exec.failure == nil {
		exec.failure = err
	}
	result.Duration = time.Since(start)

	softErr := exec.soft.Finalize()
	switch {
	case exec.failure != nil || softErr != nil:
		result.Status = report.StatusFailed
		result.Error = errors.Join(exec.failure, softErr)
		r.coordinator.OnFailure(ctx, key, result.Error)
	case exec.skipped:
		result.Status = report.StatusSkipped
		result.SkipReason = exec.skipReason
		var cause error
		if exec.skipReason != "" {
			cause = errors.New(exec.skipReason)
		}
		r.coordinator.OnSkip(ctx, key, cause)
	default:
		result.Status = report.StatusPassed
		r.coordinator.OnSuccess(ctx, key)
	}
	return result
}

func (r *Runner) skip(ctx context.Context, result *TestResult, reason string, cause error) *TestResult {
	result.Status = report.StatusSkipped
	result.SkipReason = reason
	r.coordinator.OnSkip(ctx, result.Key, cause)
	return result
}

// wait blocks for the start limiter and reports a cancelled run.
func (r *Runner) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return ErrCancelled
	}
	return nil
}

func (r *Runner) newExecution(ctx context.Context, key report.ExecutionKey, t *Test) *Execution {
	node := r.coordinator.Node(key)
	opts := []softassert.Option{
		softassert.WithContext(ctx),
		softassert.WithLogger(r.logger),
	}
	if node != nil {
		opts = append(opts, softassert.WithNode(node))
	}
	if r.capturer != nil && r.config.EvidenceOnFailure {
		opts = append(opts, softassert.WithEvidence(r.capturer, t.Session, r.config.EvidenceOnSuccess))
	}
	return &Execution{
		key:  key,
		ctx:  ctx,
		node: node,
		soft: softassert.New(t.Name, opts...),
	}
}

func (r *Runner) attributes(t *Test) map[string]string {
	attrs := make(map[string]string, len(r.config.Attributes)+len(t.Attributes)+1)
	if r.config.Environment != "" {
		attrs["environment"] = r.config.Environment
	}
	for k, v := range r.config.Attributes {
		attrs[k] = v
	}
	for k, v := range t.Attributes {
		attrs[k] = v
	}
	return attrs
}

func (r *Runner) shouldRun(t *Test, hasOnly bool) bool {
	if hasOnly && !t.Only {
		return false
	}

	if r.config.NameFilter != "" {
		if t.Name == "" || !matchesPattern(t.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(t.Categories, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
