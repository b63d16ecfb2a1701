package softassert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/assertions"
	"github.com/abdul-hamid-achik/hitreport/packages/evidence"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// Record is the outcome of one check. Records are never modified after they are appended.
type Record struct {
	Kind     assertions.Kind
	Message  string
	Expected any
	Actual   any
	Passed   bool
	Detail   string
	Evidence report.Evidence
	Time     time.Time
}

// Capturer is the evidence source used for failing (and optionally passing) checks.
// *evidence.Capturer satisfies it.
type Capturer interface {
	Capture(ctx context.Context, target evidence.Target) (report.Evidence, error)
}

type Session struct {
	test      string
	ctx       context.Context
	node      *report.Node
	evaluator *assertions.Evaluator
	logger    *slog.Logger

	capturer         Capturer
	driverSession    string
	captureOnFailure bool
	captureOnSuccess bool

	mu       sync.Mutex
	records  []Record
	reported int // failures already surfaced by Finalize
}

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithNode makes every check also log a pass/fail entry on node.
func WithNode(node *report.Node) Option {
	return func(s *Session) {
		s.node = node
	}
}

// WithEvidence enables snapshots through capturer for failing checks, and for
// passing checks as well when onSuccess is set.
func WithEvidence(capturer Capturer, driverSession string, onSuccess bool) Option {
	return func(s *Session) {
		s.capturer = capturer
		s.driverSession = driverSession
		s.captureOnFailure = capturer != nil
		s.captureOnSuccess = capturer != nil && onSuccess
	}
}

func WithContext(ctx context.Context) Option {
	return func(s *Session) {
		s.ctx = ctx
	}
}

func WithEvaluator(e *assertions.Evaluator) Option {
	return func(s *Session) {
		s.evaluator = e
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a session for the named test execution.
func New(test string, opts ...Option) *Session {
	s := &Session{
		test:      test,
		ctx:       context.Background(),
		evaluator: assertions.NewEvaluator(),
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check records the outcome of a caller-evaluated predicate. It never stops the test.
func (s *Session) Check(passed bool, message string, expected, actual any) bool {
	return s.Assert(assertions.Check{
		Kind:     assertions.KindPredicate,
		Message:  message,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
	})
}

// Assert evaluates c and records the outcome. It reports whether the check passed.
func (s *Session) Assert(c assertions.Check) bool {
	result := s.evaluator.Evaluate(c)
	rec := Record{
		Kind:     result.Kind,
		Message:  result.Message,
		Expected: result.Expected,
		Actual:   result.Actual,
		Passed:   result.Passed,
		Detail:   result.Detail,
		Time:     time.Now(),
	}

	if (rec.Passed && s.captureOnSuccess) || (!rec.Passed && s.captureOnFailure) {
		rec.Evidence = s.capture(rec)
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.logRecord(rec)
	return rec.Passed
}

func (s *Session) capture(rec Record) (ev report.Evidence) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("unable to capture evidence for assertion", "test", s.test, "message", rec.Message, "panic", fmt.Sprint(r))
			ev = report.Evidence{}
		}
	}()

	name := s.test
	if s.node != nil {
		name = s.node.Name
	}
	ev, err := s.capturer.Capture(s.ctx, evidence.Target{
		Name:    name,
		Session: s.driverSession,
		Detail:  rec.Message,
	})
	if err != nil {
		s.logger.Warn("unable to capture evidence for assertion", "test", s.test, "message", rec.Message, "error", err)
		return report.Evidence{}
	}
	return ev
}

func (s *Session) logRecord(rec Record) {
	status := "passed"
	if !rec.Passed {
		status = "failed"
	}
	s.logger.Info(fmt.Sprintf("assert %s", status), "test", s.test, "message", rec.Message)

	if s.node == nil {
		return
	}
	entry := report.LogEntry{Time: rec.Time, Level: report.LevelPass}
	if rec.Passed {
		entry.Message = fmt.Sprintf("%s Actual: %v", rec.Message, rec.Actual)
	} else {
		entry.Level = report.LevelFail
		entry.Message = fmt.Sprintf("%s Actual: %v Expected: %v", rec.Message, rec.Actual, rec.Expected)
	}
	if !rec.Evidence.IsZero() {
		ev := rec.Evidence
		entry.Evidence = &ev
	}
	s.node.Log(entry)
}

// Equal records whether actual equals expected.
func (s *Session) Equal(expected, actual any, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindEquals, Message: message, Expected: expected, Actual: actual})
}

func (s *Session) NotEqual(unexpected, actual any, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindNotEquals, Message: message, Expected: unexpected, Actual: actual})
}

func (s *Session) True(value bool, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindTrue, Message: message, Expected: true, Actual: value})
}

func (s *Session) False(value bool, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindFalse, Message: message, Expected: false, Actual: value})
}

func (s *Session) Contains(actual, substr any, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindContains, Message: message, Expected: substr, Actual: actual})
}

func (s *Session) Matches(actual any, pattern string, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindMatches, Message: message, Expected: pattern, Actual: actual})
}

// JSONPath checks the value at path in a JSON document. A nil expected only
// requires the path to exist.
func (s *Session) JSONPath(document any, path string, expected any, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindJSONPath, Message: message, Expected: expected, Actual: document, Path: path})
}

// Schema validates a JSON document against a JSON schema (inline, Go value or file path).
func (s *Session) Schema(document any, schema any, message string) bool {
	return s.Assert(assertions.Check{Kind: assertions.KindSchema, Message: message, Expected: schema, Actual: document})
}

// Pass records an unconditional passing step.
func (s *Session) Pass(message string) {
	s.Check(true, message, nil, nil)
}

// Fail records an unconditional failing step; it is surfaced by Finalize.
func (s *Session) Fail(message string) {
	s.Check(false, message, nil, nil)
}

func (s *Session) Info(message string) {
	s.logger.Info(message, "test", s.test)
	s.note(report.LevelInfo, message, nil)
}

func (s *Session) Warn(message string) {
	s.logger.Warn(message, "test", s.test)
	s.note(report.LevelWarn, message, nil)
}

// Error logs an error line on the report node. Unlike Fail it does not fail the test.
func (s *Session) Error(message string) {
	s.logger.Error(message, "test", s.test)
	s.note(report.LevelError, message, nil)
}

// Link logs an informational hyperlink on the report node.
func (s *Session) Link(text, url string) {
	s.logger.Info(fmt.Sprintf("%s-%s", text, url), "test", s.test)
	s.note(report.LevelInfo, text, &report.Link{Text: text, URL: url})
}

func (s *Session) note(level report.Level, message string, link *report.Link) {
	if s.node == nil {
		return
	}
	s.node.Log(report.LogEntry{Level: level, Message: message, Link: link})
}

// Records returns a copy of all records in recording order.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Failures returns the failing records in recording order.
func (s *Session) Failures() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Finalize returns an *AggregatedError describing every failure recorded since
// the previous Finalize, or nil when there is none.
func (s *Session) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []Record
	failures := 0
	for _, r := range s.records {
		if r.Passed {
			continue
		}
		failures++
		if failures > s.reported {
			pending = append(pending, r)
		}
	}
	s.reported = failures

	if len(pending) == 0 {
		return nil
	}
	return &AggregatedError{Test: s.test, Failures: pending}
}
