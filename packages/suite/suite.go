// Package suite assembles the report store, lifecycle coordinator, runner and
// the configured sinks from a config.Config.
//
//	cfg, _ := config.FindAndLoadConfig(".")
//	s, err := suite.New(ctx, cfg, suite.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	result, err := s.Run(ctx, tests)
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/core/config"
	"github.com/abdul-hamid-achik/hitreport/packages/core/lifecycle"
	"github.com/abdul-hamid-achik/hitreport/packages/core/runner"
	"github.com/abdul-hamid-achik/hitreport/packages/evidence"
	"github.com/abdul-hamid-achik/hitreport/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitreport/packages/history"
	"github.com/abdul-hamid-achik/hitreport/packages/notify"
	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/stats"
	"github.com/abdul-hamid-achik/hitreport/packages/webdriver"
)

// Report file names inside the report directory
const (
	JSONFile    = "report.json"
	JUnitFile   = "junit.xml"
	HTMLFile    = "index.html"
	TAPFile     = "report.tap"
	MetricsFile = "metrics.prom"
)

// ErrAlreadyRun is returned when Run is called a second time
var ErrAlreadyRun = errors.New("suite already run")

type Suite struct {
	cfg         *config.Config
	store       *report.Store
	coordinator *lifecycle.Coordinator
	runner      *runner.Runner
	collector   *stats.Collector
	sinks       output.Multi
	history     *history.Store
	recorder    *history.Recorder
	files       []*os.File
	logger      *slog.Logger

	snapshotter   evidence.Snapshotter
	console       io.Writer
	version       string
	extraSinks    []output.Sink
	before, after []runner.Hook

	once sync.Once
	ran  atomic.Bool
}

type Option func(*Suite)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Suite) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSnapshotter sets the evidence source, replacing the WebDriver client
// built from webdriverURL.
func WithSnapshotter(snapshotter evidence.Snapshotter) Option {
	return func(s *Suite) {
		s.snapshotter = snapshotter
	}
}

// WithConsole sets where the console reporter writes; stdout by default.
func WithConsole(w io.Writer) Option {
	return func(s *Suite) {
		s.console = w
	}
}

// WithSink adds a sink next to the configured reporters
func WithSink(sink output.Sink) Option {
	return func(s *Suite) {
		s.extraSinks = append(s.extraSinks, sink)
	}
}

func WithVersion(version string) Option {
	return func(s *Suite) {
		s.version = version
	}
}

// WithHooks sets hooks run before and after every test body
func WithHooks(before, after []runner.Hook) Option {
	return func(s *Suite) {
		s.before = before
		s.after = after
	}
}

// New validates cfg and builds a suite. Report files are created in
// cfg.ReportDir immediately.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Suite, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Suite{
		cfg:       cfg,
		store:     report.NewStore(),
		collector: stats.NewCollector(),
		console:   os.Stdout,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snapshotter == nil && cfg.WebDriverURL != "" {
		s.snapshotter = webdriver.NewClient(cfg.WebDriverURL)
	}

	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := s.buildSinks(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	sink := lifecycle.SinkFunc(func(node *report.Node) {
		s.collector.Accept(node)
		s.sinks.Accept(node)
	})

	coordOpts := []lifecycle.Option{lifecycle.WithLogger(s.logger)}
	runOpts := []runner.Option{runner.WithLogger(s.logger)}
	evidenceOn := cfg.GetEvidenceEnabled() && s.snapshotter != nil
	if evidenceOn {
		capturer := evidence.NewCapturer(cfg.EvidenceDir(), s.snapshotter, evidence.WithLogger(s.logger))
		coordOpts = append(coordOpts, lifecycle.WithEvidence(capturer, cfg.GetEvidenceOnSuccess()))
		runOpts = append(runOpts, runner.WithCapturer(capturer))
	} else if cfg.GetEvidenceEnabled() {
		s.logger.Info("evidence enabled but no snapshot source configured")
	}

	s.coordinator = lifecycle.NewCoordinator(s.store, sink, coordOpts...)
	s.runner = runner.NewRunner(s.coordinator, &runner.Config{
		Environment:       cfg.Environment,
		Concurrency:       cfg.Concurrency,
		StartRate:         cfg.StartRate,
		Attributes:        cfg.Attributes,
		EvidenceOnFailure: evidenceOn,
		EvidenceOnSuccess: cfg.GetEvidenceOnSuccess(),
		BeforeEach:        s.before,
		AfterEach:         s.after,
	}, runOpts...)

	return s, nil
}

func (s *Suite) buildSinks(ctx context.Context) error {
	cfg := s.cfg
	base := cfg.ReportDir

	for _, name := range cfg.Reporters {
		switch name {
		case "console":
			s.sinks = append(s.sinks, output.NewConsoleSink(
				output.WithWriter(s.console),
				output.WithVerbose(cfg.GetVerbose()),
				output.WithNoColor(cfg.GetNoColor()),
				output.WithBaseDir(base),
			))
		case "json":
			f, err := s.create(JSONFile)
			if err != nil {
				return err
			}
			s.sinks = append(s.sinks, output.NewJSONSink(output.JSONWithWriter(f), output.JSONWithBaseDir(base)))
		case "junit":
			f, err := s.create(JUnitFile)
			if err != nil {
				return err
			}
			s.sinks = append(s.sinks, output.NewJUnitSink(output.JUnitWithWriter(f), output.JUnitWithBaseDir(base)))
		case "html":
			f, err := s.create(HTMLFile)
			if err != nil {
				return err
			}
			s.sinks = append(s.sinks, output.NewHTMLSink(
				output.HTMLWithWriter(f),
				output.HTMLWithBaseDir(base),
				output.HTMLWithVersion(s.version),
			))
		case "tap":
			f, err := s.create(TAPFile)
			if err != nil {
				return err
			}
			s.sinks = append(s.sinks, output.NewTAPSink(output.TAPWithWriter(f), output.TAPWithBaseDir(base)))
		case "history":
			store, err := history.Open(cfg.HistoryDSN)
			if err != nil {
				return err
			}
			s.history = store
			rec, err := history.NewRecorder(ctx, store, cfg.ReportName, cfg.Environment, base)
			if err != nil {
				return err
			}
			s.recorder = rec
			s.sinks = append(s.sinks, rec)
		case "metrics":
			labels := map[string]string{}
			if cfg.Environment != "" {
				labels["environment"] = cfg.Environment
			}
			s.sinks = append(s.sinks, metrics.NewSink(labels, metrics.WithTextfile(filepath.Join(base, MetricsFile))))
		}
	}

	if cfg.Notify.SlackWebhook != "" {
		on, err := notify.ParseNotifyOn(cfg.Notify.On)
		if err != nil {
			return &config.ConfigurationError{Field: "notify.on", Reason: err.Error()}
		}
		manager := notify.NewManager(on, notify.NewSlackNotifier(cfg.Notify.SlackWebhook,
			notify.WithSlackChannel(cfg.Notify.SlackChannel)))
		manager.SetLogger(s.logger)
		manager.SetPreviousFailed(s.previousFailed(ctx))
		s.sinks = append(s.sinks, notify.NewSink(manager, base))
	}

	s.sinks = append(s.sinks, s.extraSinks...)
	return nil
}

// previousFailed reports whether the last finished run in history failed
func (s *Suite) previousFailed(ctx context.Context) bool {
	if s.history == nil {
		return false
	}
	runs, err := s.history.ListRuns(ctx, 0)
	if err != nil {
		s.logger.Warn("unable to read previous runs", "error", err)
		return false
	}
	for _, r := range runs {
		if s.recorder != nil && r.ID == s.recorder.RunID() {
			continue
		}
		if r.Finished {
			return r.Failed > 0 || r.Leaked > 0
		}
	}
	return false
}

func (s *Suite) create(name string) (*os.File, error) {
	f, err := os.Create(filepath.Join(s.cfg.ReportDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	s.files = append(s.files, f)
	return f, nil
}

// Coordinator returns the lifecycle coordinator, for callers that drive test
// events from their own harness instead of Run.
func (s *Suite) Coordinator() *lifecycle.Coordinator {
	return s.coordinator
}

// Run executes tests and flushes every sink. It may be called once.
func (s *Suite) Run(ctx context.Context, tests []*runner.Test) (*runner.RunResult, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	start := time.Now()
	result, err := s.runner.Run(ctx, tests)
	if err != nil {
		return nil, err
	}

	summary := output.RunSummary{
		Name:        s.cfg.ReportName,
		Environment: s.cfg.Environment,
		StartTime:   start,
		Duration:    result.Duration,
		Leaked:      len(result.Leaked),
		Stats:       s.collector.Summary(),
	}
	if err := s.sinks.Flush(summary); err != nil {
		return result, fmt.Errorf("failed to write reports: %w", err)
	}
	return result, nil
}

// RunID returns the history run id, or "" when history is not recorded
func (s *Suite) RunID() string {
	if s.recorder == nil {
		return ""
	}
	return s.recorder.RunID()
}

// Close closes report files and the history database
func (s *Suite) Close() error {
	var errs []error
	s.once.Do(func() {
		for _, f := range s.files {
			if err := f.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.history != nil {
			if err := s.history.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
