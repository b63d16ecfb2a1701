package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/evidence"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// OverallResult prefixes the closing log entry of a passed execution.
const OverallResult = "Overall Test Case Result: "

// Sink receives finalized nodes, once per execution, in finalization order.
type Sink interface {
	Accept(node *report.Node)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(node *report.Node)

func (f SinkFunc) Accept(node *report.Node) { f(node) }

// Capturer takes evidence for a node. *evidence.Capturer implements it.
type Capturer interface {
	Capture(ctx context.Context, target evidence.Target) (report.Evidence, error)
}

// Metadata describes an execution at start.
type Metadata struct {
	// DisplayName overrides the test identifier as the report name.
	DisplayName string
	Attributes  map[string]string
	Categories  []string
	Parameters  map[string]string
	// Session is the driver session handle used for evidence capture.
	Session string
	Worker  int
}

// Coordinator correlates runner events with report nodes held in a Store.
type Coordinator struct {
	store             *report.Store
	sink              Sink
	capturer          Capturer
	evidenceEnabled   bool
	evidenceOnSuccess bool
	now               func() time.Time
	logger            *slog.Logger
}

// Option is a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithEvidence enables evidence capture on failure, and on success when onSuccess is set.
func WithEvidence(capturer Capturer, onSuccess bool) Option {
	return func(c *Coordinator) {
		c.capturer = capturer
		c.evidenceEnabled = capturer != nil
		c.evidenceOnSuccess = onSuccess
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator returns a Coordinator over store. A nil sink discards nodes.
func NewCoordinator(store *report.Store, sink Sink, opts ...Option) *Coordinator {
	if sink == nil {
		sink = SinkFunc(func(*report.Node) {})
	}
	c := &Coordinator{
		store:  store,
		sink:   sink,
		now:    time.Now,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnStart registers a running node for key. A duplicate key is logged and the
// execution proceeds without a node.
func (c *Coordinator) OnStart(ctx context.Context, key report.ExecutionKey, meta Metadata) {
	defer c.recover("start", key)

	node := report.NewNode(key, meta.DisplayName)
	node.StartTime = c.now()
	node.Worker = meta.Worker
	node.Session = meta.Session
	for k, v := range meta.Attributes {
		node.Attributes[k] = v
	}
	for k, v := range meta.Parameters {
		node.Parameters[k] = v
	}
	node.AddCategories(meta.Categories...)
	if err := node.SetStatus(report.StatusRunning); err != nil {
		c.logger.Error("unable to start report node", "key", key.String(), "error", err)
		return
	}

	if err := c.store.Register(key, node); err != nil {
		c.logger.Error("report node not registered, execution continues unreported", "key", key.String(), "error", err)
		return
	}
	c.logger.Info("started test", "test", key.Test, "invocation", key.Invocation, "worker", meta.Worker)
}

func (c *Coordinator) OnSuccess(ctx context.Context, key report.ExecutionKey) {
	c.finish(ctx, key, report.StatusPassed, nil)
}

// OnFailure finalizes key as failed with cause's message.
func (c *Coordinator) OnFailure(ctx context.Context, key report.ExecutionKey, cause error) {
	c.finish(ctx, key, report.StatusFailed, cause)
}

// OnSkip finalizes key as skipped. cause may be nil.
func (c *Coordinator) OnSkip(ctx context.Context, key report.ExecutionKey, cause error) {
	c.finish(ctx, key, report.StatusSkipped, cause)
}

// Node returns the live node for key, or nil once it is finalized or was never started.
func (c *Coordinator) Node(key report.ExecutionKey) *report.Node {
	node, err := c.store.Lookup(key)
	if err != nil {
		return nil
	}
	return node
}

// Leaked returns the keys that were started but never finalized.
func (c *Coordinator) Leaked() []report.ExecutionKey {
	return c.store.Keys()
}

func (c *Coordinator) finish(ctx context.Context, key report.ExecutionKey, status report.Status, cause error) {
	defer c.recover(status.String(), key)

	node, err := c.store.Lookup(key)
	if err != nil {
		c.logger.Warn("test report node is missing, result will not be reported", "key", key.String(), "status", status.String(), "error", err)
		return
	}
	if node.Status().Terminal() {
		c.logger.Warn("test already finalized", "key", key.String(), "status", node.Status().String())
		return
	}
	// Remove is idempotent. The deferred call covers a panic before the
	// explicit Remove below, which takes the node out before the sink runs.
	defer c.store.Remove(key)

	testName := node.Name
	node.EndTime = c.now()
	node.AddDescription(describeAttributes(node.Attributes)...)
	node.AddDescription(describeParameters(node.Parameters, status == report.StatusFailed)...)
	node.Name = decorateName(node.Name, node.Parameters)

	var message string
	if cause != nil {
		message = cause.Error()
	}

	switch status {
	case report.StatusFailed:
		node.FailureMessage = message
		entry := report.LogEntry{Level: report.LevelFail, Message: message}
		if c.evidenceEnabled {
			entry.Evidence = c.capture(ctx, node, message)
		}
		node.Log(entry)
	case report.StatusPassed:
		entry := report.LogEntry{Level: report.LevelPass, Message: fmt.Sprintf("%s%s - Passed", OverallResult, testName)}
		if c.evidenceEnabled && c.evidenceOnSuccess {
			entry.Evidence = c.capture(ctx, node, "")
		}
		node.Log(entry)
	case report.StatusSkipped:
		node.FailureMessage = message
		node.Log(report.LogEntry{Level: report.LevelSkip, Message: message})
	}

	if err := node.SetStatus(status); err != nil {
		// Another terminal event won the race and owns the hand-off.
		c.logger.Warn("test already finalized", "key", key.String(), "error", err)
		return
	}

	c.store.Remove(key)
	c.logger.Info("finished test", "test", key.Test, "invocation", key.Invocation, "status", status.String(), "duration", node.Duration())
	c.sink.Accept(node)
}

// capture returns nil when no evidence could be taken.
func (c *Coordinator) capture(ctx context.Context, node *report.Node, detail string) (out *report.Evidence) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("unable to capture evidence", "key", node.Key.String(), "panic", fmt.Sprint(r))
			out = nil
		}
	}()

	ev, err := c.capturer.Capture(ctx, evidence.Target{
		Name:    node.Name,
		Session: node.Session,
		Detail:  detail,
	})
	if err != nil {
		c.logger.Warn("unable to capture evidence", "key", node.Key.String(), "error", err)
		return nil
	}
	if ev.IsZero() {
		return nil
	}
	return &ev
}

func (c *Coordinator) recover(event string, key report.ExecutionKey) {
	if r := recover(); r != nil {
		c.logger.Error("unable to report test event", "event", event, "key", key.String(), "panic", fmt.Sprint(r))
	}
}
