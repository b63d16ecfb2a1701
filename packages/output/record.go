package output

import (
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// TestRecord is the serializable form of a finalized node
type TestRecord struct {
	Name        string            `json:"name"`
	Test        string            `json:"test"`
	Invocation  string            `json:"invocation"`
	Status      string            `json:"status"`
	Worker      int               `json:"worker,omitempty"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	Duration    float64           `json:"duration"` // milliseconds
	Description []string          `json:"description,omitempty"`
	Categories  []string          `json:"categories,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Failure     string            `json:"failure,omitempty"`
	Evidence    []report.Evidence `json:"evidence,omitempty"`
	Logs        []report.LogEntry `json:"logs,omitempty"`
}

// NewTestRecord converts node. Evidence paths are made relative to baseDir.
func NewTestRecord(node *report.Node, baseDir string) TestRecord {
	rec := TestRecord{
		Name:        node.Name,
		Test:        node.Key.Test,
		Invocation:  node.Key.Invocation,
		Status:      node.Status().String(),
		Worker:      node.Worker,
		StartTime:   node.StartTime,
		EndTime:     node.EndTime,
		Duration:    float64(node.Duration().Milliseconds()),
		Description: node.Description,
		Categories:  node.Categories,
		Failure:     node.FailureMessage,
	}
	if len(node.Attributes) > 0 {
		rec.Attributes = node.Attributes
	}
	if len(node.Parameters) > 0 {
		rec.Parameters = node.Parameters
	}
	for _, ev := range node.Evidence {
		ev.Path = relativeEvidence(baseDir, ev.Path)
		rec.Evidence = append(rec.Evidence, ev)
	}
	for _, entry := range node.Logs {
		if entry.Evidence != nil {
			ev := *entry.Evidence
			ev.Path = relativeEvidence(baseDir, ev.Path)
			entry.Evidence = &ev
		}
		rec.Logs = append(rec.Logs, entry)
	}
	return rec
}

// Node rebuilds a finalized node from rec, for rendering stored runs.
func (rec TestRecord) Node() (*report.Node, error) {
	status, err := report.ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}
	node := report.NewNode(report.ExecutionKey{Test: rec.Test, Invocation: rec.Invocation}, rec.Name)
	node.Worker = rec.Worker
	node.StartTime = rec.StartTime
	node.EndTime = rec.EndTime
	node.Description = rec.Description
	node.Categories = rec.Categories
	node.FailureMessage = rec.Failure
	node.Evidence = rec.Evidence
	node.Logs = rec.Logs
	for k, v := range rec.Attributes {
		node.Attributes[k] = v
	}
	for k, v := range rec.Parameters {
		node.Parameters[k] = v
	}
	if status > report.StatusRunning {
		_ = node.SetStatus(report.StatusRunning)
	}
	if err := node.SetStatus(status); err != nil {
		return nil, err
	}
	return node, nil
}
