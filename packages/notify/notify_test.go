package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []*RunSummary
	err       error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
	return r.err
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("")
	require.NoError(t, err)
	assert.Equal(t, NotifyFailure, on)

	on, err = ParseNotifyOn(" Recovery ")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestManager_Policies(t *testing.T) {
	passing := func() *RunSummary { return &RunSummary{TotalTests: 2, PassedTests: 2} }
	failing := func() *RunSummary { return &RunSummary{TotalTests: 2, PassedTests: 1, FailedTests: 1} }
	unfinished := func() *RunSummary { return &RunSummary{TotalTests: 1, PassedTests: 1, Unfinished: 1} }

	tests := []struct {
		name     string
		on       NotifyOn
		previous bool
		summary  *RunSummary
		want     bool
		recovery bool
	}{
		{name: "always on pass", on: NotifyAlways, summary: passing(), want: true},
		{name: "failure on pass", on: NotifyFailure, summary: passing(), want: false},
		{name: "failure on fail", on: NotifyFailure, summary: failing(), want: true},
		{name: "failure on unfinished", on: NotifyFailure, summary: unfinished(), want: true},
		{name: "success on pass", on: NotifySuccess, summary: passing(), want: true},
		{name: "success on fail", on: NotifySuccess, summary: failing(), want: false},
		{name: "recovery after failure", on: NotifyRecovery, previous: true, summary: passing(), want: true, recovery: true},
		{name: "recovery after pass", on: NotifyRecovery, summary: passing(), want: false},
		{name: "recovery on fail", on: NotifyRecovery, summary: failing(), want: true},
		{name: "never", on: NotifyNever, summary: failing(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rn := &recordingNotifier{}
			m := NewManager(tt.on, rn)
			m.SetPreviousFailed(tt.previous)

			require.NoError(t, m.Notify(context.Background(), tt.summary))
			if tt.want {
				require.Len(t, rn.summaries, 1)
			} else {
				assert.Empty(t, rn.summaries)
			}
			assert.Equal(t, tt.recovery, tt.summary.IsRecovery)
		})
	}
}

func TestManager_TracksPreviousRun(t *testing.T) {
	rn := &recordingNotifier{}
	m := NewManager(NotifyRecovery, rn)

	require.NoError(t, m.Notify(context.Background(), &RunSummary{FailedTests: 1}))
	recovered := &RunSummary{PassedTests: 1}
	require.NoError(t, m.Notify(context.Background(), recovered))

	assert.Len(t, rn.summaries, 2)
	assert.True(t, recovered.IsRecovery)
}

func TestManager_JoinsErrors(t *testing.T) {
	bad := &recordingNotifier{err: errors.New("webhook gone")}
	good := &recordingNotifier{}
	m := NewManager(NotifyAlways, bad, good)

	err := m.Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording: webhook gone")
	assert.Len(t, good.summaries, 1, "a failing notifier does not stop the others")
}

func finishedNode(name string, status report.Status) *report.Node {
	n := report.NewNode(report.ExecutionKey{Test: name, Invocation: "inv-" + name}, name)
	n.StartTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n.EndTime = n.StartTime.Add(time.Second)
	_ = n.SetStatus(report.StatusRunning)
	_ = n.SetStatus(status)
	return n
}

func TestSink(t *testing.T) {
	rn := &recordingNotifier{}
	sink := NewSink(NewManager(NotifyFailure, rn), "/reports")

	failed := finishedNode("checkout", report.StatusFailed)
	failed.FailureMessage = "Following soft asserts failed in checkout()"
	failed.Log(report.LogEntry{Level: report.LevelFail, Message: "total Actual: 9 Expected: 10",
		Evidence: &report.Evidence{Path: "/reports/evidence/checkout.png"}})
	failed.Log(report.LogEntry{Level: report.LevelFail, Message: failed.FailureMessage})

	sink.Accept(finishedNode("login", report.StatusPassed))
	sink.Accept(finishedNode("search", report.StatusSkipped))
	sink.Accept(failed)
	require.NoError(t, sink.Flush(output.RunSummary{Name: "Nightly", Environment: "qa", Duration: time.Minute}))

	require.Len(t, rn.summaries, 1)
	s := rn.summaries[0]
	assert.Equal(t, "Nightly", s.Name)
	assert.Equal(t, 3, s.TotalTests)
	assert.Equal(t, 1, s.FailedTests)
	assert.Equal(t, 1, s.SkippedTests)
	require.Len(t, s.FailedResults, 1)
	assert.Equal(t, []string{"total Actual: 9 Expected: 10"}, s.FailedResults[0].Errors)
	assert.Equal(t, []string{"evidence/checkout.png"}, s.FailedResults[0].Evidence)
}

func TestSink_LimitsFailures(t *testing.T) {
	rn := &recordingNotifier{}
	sink := NewSink(NewManager(NotifyFailure, rn), "")
	for i := 0; i < DefaultMaxFailures+5; i++ {
		n := finishedNode("t", report.StatusFailed)
		n.FailureMessage = "boom"
		sink.Accept(n)
	}
	require.NoError(t, sink.Flush(output.RunSummary{}))

	s := rn.summaries[0]
	assert.Equal(t, DefaultMaxFailures+5, s.FailedTests)
	assert.Len(t, s.FailedResults, DefaultMaxFailures)
	assert.Equal(t, []string{"boom"}, s.FailedResults[0].Errors)
}

func TestSlackNotifier(t *testing.T) {
	var got slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#qa"))
	err := n.Notify(context.Background(), &RunSummary{
		Name:        "Nightly",
		TotalTests:  2,
		PassedTests: 1,
		FailedTests: 1,
		Environment: "staging",
		FailedResults: []FailedTest{
			{Name: "checkout", Errors: []string{"total Actual: 9 Expected: 10"}, Evidence: []string{"evidence/checkout.png"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "#qa", got.Channel)
	assert.Equal(t, "hitreport", got.Username)
	assert.Equal(t, "Nightly: :x: 1 test(s) failed", got.Text)
	require.Len(t, got.Blocks, 4)
	assert.Contains(t, got.Blocks[1].Fields, slackText{Type: "mrkdwn", Text: "*Passed*\n1/2"})
	assert.Contains(t, got.Blocks[1].Fields, slackText{Type: "mrkdwn", Text: "*Environment*\nstaging"})
	require.NotNil(t, got.Blocks[2].Text)
	assert.Equal(t, "`checkout`\n> total Actual: 9 Expected: 10\n:camera: evidence/checkout.png", got.Blocks[2].Text.Text)
	assert.Equal(t, "context", got.Blocks[3].Type)
}

func TestSlackNotifier_Recovery(t *testing.T) {
	var got slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL)
	require.NoError(t, n.Notify(context.Background(), &RunSummary{PassedTests: 1, IsRecovery: true}))
	assert.Equal(t, ":tada: Tests recovered", got.Text)
	assert.Len(t, got.Blocks, 3)
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "invalid_token")
}

func TestMrkdwn_Truncates(t *testing.T) {
	text := mrkdwn("%s", strings.Repeat("x", slackTextLimit+10))
	assert.Len(t, text.Text, slackTextLimit)
	assert.True(t, strings.HasSuffix(text.Text, "..."))
}
