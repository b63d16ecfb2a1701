package report

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrStatusRegression is returned when a status change would move a node backwards
// or out of a terminal status.
var ErrStatusRegression = errors.New("status regression")

// Status is the lifecycle status of a report node
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusPassed
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "not_started":
		return StatusNotStarted, nil
	case "running":
		return StatusRunning, nil
	case "passed":
		return StatusPassed, nil
	case "failed":
		return StatusFailed, nil
	case "skipped":
		return StatusSkipped, nil
	}
	return StatusNotStarted, fmt.Errorf("unknown status %q", v)
}

// ExecutionKey identifies one invocation of a test. Invocation is unique per
// execution, so two runs of the same test never address each other's node.
type ExecutionKey struct {
	Test       string
	Invocation string
}

func (k ExecutionKey) String() string {
	return k.Test + "#" + k.Invocation
}

// Evidence references a captured artifact. A zero Evidence means nothing was captured.
type Evidence struct {
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"capturedAt"`
	Detail     string    `json:"detail,omitempty"`
}

func (e Evidence) IsZero() bool {
	return e.Path == ""
}

// Level classifies a report log entry
type Level string

const (
	LevelInfo  Level = "info"
	LevelPass  Level = "pass"
	LevelFail  Level = "fail"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelSkip  Level = "skip"
)

// Link is a hyperlink attached to a log entry
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// LogEntry is one line of a node's step log
type LogEntry struct {
	Time     time.Time `json:"time"`
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	Link     *Link     `json:"link,omitempty"`
	Evidence *Evidence `json:"evidence,omitempty"`
}

// Node is the report record of a single test execution.
//
// Exported fields are written by the owning execution and read by sinks after
// finalization. Appends go through the methods so that helper goroutines spawned
// by a test may log safely.
type Node struct {
	Key            ExecutionKey
	Name           string
	Worker         int
	StartTime      time.Time
	EndTime        time.Time
	Description    []string
	Categories     []string
	Attributes     map[string]string
	Parameters     map[string]string
	// Session is the driver session evidence is captured from; empty when the
	// test drives no browser.
	Session        string
	FailureMessage string
	Evidence       []Evidence
	Logs           []LogEntry

	mu     sync.Mutex
	status Status
}

// NewNode returns a node in StatusNotStarted.
func NewNode(key ExecutionKey, name string) *Node {
	if name == "" {
		name = key.Test
	}
	return &Node{
		Key:        key,
		Name:       name,
		Attributes: make(map[string]string),
		Parameters: make(map[string]string),
	}
}

func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// SetStatus moves the node forward. Terminal statuses are final.
func (n *Node) SetStatus(next Status) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status.Terminal() || next < n.status {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, n.status, next)
	}
	n.status = next
	return nil
}

func (n *Node) AddDescription(lines ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n.Description = append(n.Description, l)
		}
	}
}

func (n *Node) AddCategories(categories ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Categories = append(n.Categories, categories...)
}

func (n *Node) AddEvidence(e Evidence) {
	if e.IsZero() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Evidence = append(n.Evidence, e)
}

// Log appends a step log entry. Evidence attached to the entry is also recorded
// on the node.
func (n *Node) Log(entry LogEntry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Logs = append(n.Logs, entry)
	if entry.Evidence != nil && !entry.Evidence.IsZero() {
		n.Evidence = append(n.Evidence, *entry.Evidence)
	}
}

func (n *Node) Duration() time.Duration {
	if n.StartTime.IsZero() || n.EndTime.IsZero() {
		return 0
	}
	return n.EndTime.Sub(n.StartTime)
}

// Failures returns the log entries at fail or error level.
func (n *Node) Failures() []LogEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []LogEntry
	for _, e := range n.Logs {
		if e.Level == LevelFail || e.Level == LevelError {
			out = append(out, e)
		}
	}
	return out
}
