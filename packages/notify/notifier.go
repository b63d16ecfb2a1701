// Package notify sends run summaries to chat services.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when tests fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when tests pass
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and when tests recover from failure
	NotifyRecovery NotifyOn = "recovery"
	// NotifyNever disables notifications
	NotifyNever NotifyOn = "never"
)

// ParseNotifyOn returns the policy named by s. An empty string means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(strings.ToLower(strings.TrimSpace(s))); on {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery, NotifyNever:
		return on, nil
	}
	return "", fmt.Errorf("unknown notify policy %q", s)
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	Name          string        `json:"name,omitempty"`
	Environment   string        `json:"environment,omitempty"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Unfinished    int           `json:"unfinished,omitempty"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// Failed reports whether the run counts as failed
func (s *RunSummary) Failed() bool {
	return s.FailedTests > 0 || s.Unfinished > 0
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name     string   `json:"name"`
	Test     string   `json:"test"`
	Errors   []string `json:"errors,omitempty"`
	Evidence []string `json:"evidence,omitempty"`
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about test results
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager applies the notification policy and fans out to notifiers
type Manager struct {
	notifiers      []Notifier
	notifyOn       NotifyOn
	previousFailed bool
	logger         *slog.Logger
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLogger sets the logger used to report delivery failures
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetPreviousFailed records the outcome of the previous run, used by the
// recovery policy.
func (m *Manager) SetPreviousFailed(failed bool) {
	m.previousFailed = failed
}

// ShouldNotify applies the policy to summary and marks recoveries
func (m *Manager) ShouldNotify(summary *RunSummary) bool {
	failed := summary.Failed()

	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifyFailure:
		return failed
	case NotifySuccess:
		return !failed
	case NotifyRecovery:
		if m.previousFailed && !failed {
			summary.IsRecovery = true
			return true
		}
		return failed
	}
	return false
}

// Notify sends notifications based on the configured policy. Every notifier is
// tried; their errors are returned joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	notify := m.ShouldNotify(summary)
	m.previousFailed = summary.Failed()

	if !notify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			m.logger.Warn("notification failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
