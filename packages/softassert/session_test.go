package softassert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/hitreport/packages/evidence"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapturer struct {
	mu      sync.Mutex
	targets []evidence.Target
	err     error
}

func (f *fakeCapturer) Capture(ctx context.Context, target evidence.Target) (report.Evidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if f.err != nil {
		return report.Evidence{}, f.err
	}
	return report.Evidence{Path: "shots/" + target.Name + ".png", Detail: target.Detail}, nil
}

func TestSession_FinalizeWithoutFailures(t *testing.T) {
	s := New("Login")
	assert.NoError(t, s.Finalize())

	s.Check(true, "flag check", true, true)
	s.Equal("a", "a", "same")
	assert.NoError(t, s.Finalize())
	assert.Len(t, s.Records(), 2)
	assert.Empty(t, s.Failures())
}

func TestSession_CheckNeverStops(t *testing.T) {
	s := New("Login")

	passed := s.Check("Login Page" == "Dashboard", "title check", "Dashboard", "Login Page")
	assert.False(t, passed)
	passed = s.Check(true, "flag check", true, true)
	assert.True(t, passed)

	err := s.Finalize()
	require.Error(t, err)

	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Failures, 1)
	assert.Contains(t, err.Error(), "title check")
	assert.Contains(t, err.Error(), "Dashboard")
	assert.Contains(t, err.Error(), "Login Page")
	assert.NotContains(t, err.Error(), "flag check")
	assert.Contains(t, err.Error(), "Following soft asserts failed in Login()")
}

func TestSession_FailuresInRecordingOrder(t *testing.T) {
	s := New("Checkout")
	s.Check(false, "f1", 1, 2)
	s.Check(true, "p1", 1, 1)
	s.Check(false, "f2", "a", "b")
	s.Equal(10, 11, "f3")

	err := s.Finalize()
	require.Error(t, err)

	msg := err.Error()
	i1 := strings.Index(msg, `"f1"`)
	i2 := strings.Index(msg, `"f2"`)
	i3 := strings.Index(msg, `"f3"`)
	require.True(t, i1 >= 0 && i2 >= 0 && i3 >= 0, msg)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)

	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, []string{"f1", "f2", "f3"}, agg.Messages())
}

func TestSession_FinalizeTwice(t *testing.T) {
	s := New("a")
	s.Check(false, "first", 1, 2)

	require.Error(t, s.Finalize())
	assert.NoError(t, s.Finalize(), "nothing new since the last call")

	s.Check(false, "second", 1, 2)
	err := s.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	assert.NotContains(t, err.Error(), "first")
}

func TestSession_LogsOnNode(t *testing.T) {
	node := report.NewNode(report.ExecutionKey{Test: "Login", Invocation: "1"}, "")
	s := New("Login", WithNode(node))

	s.Check(false, "title check", "Dashboard", "Login Page")
	s.True(true, "flag check")
	s.Info("opened login page")
	s.Warn("slow page")
	s.Link("ticket", "https://example.com/T-1")

	require.Len(t, node.Logs, 5)
	assert.Equal(t, report.LevelFail, node.Logs[0].Level)
	assert.Equal(t, "title check Actual: Login Page Expected: Dashboard", node.Logs[0].Message)
	assert.Equal(t, report.LevelPass, node.Logs[1].Level)
	assert.Equal(t, "flag check Actual: true", node.Logs[1].Message)
	assert.Equal(t, report.LevelInfo, node.Logs[2].Level)
	assert.Equal(t, report.LevelWarn, node.Logs[3].Level)
	require.NotNil(t, node.Logs[4].Link)
	assert.Equal(t, "https://example.com/T-1", node.Logs[4].Link.URL)
}

func TestSession_EvidenceOnFailureOnly(t *testing.T) {
	node := report.NewNode(report.ExecutionKey{Test: "Login", Invocation: "1"}, "Login - admin")
	capt := &fakeCapturer{}
	s := New("Login", WithNode(node), WithEvidence(capt, "sess-9", false))

	s.Check(true, "ok", 1, 1)
	s.Check(false, "bad", 1, 2)

	require.Len(t, capt.targets, 1)
	assert.Equal(t, "Login - admin", capt.targets[0].Name)
	assert.Equal(t, "sess-9", capt.targets[0].Session)

	failures := s.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "shots/Login - admin.png", failures[0].Evidence.Path)
	assert.Len(t, node.Evidence, 1)
}

func TestSession_EvidenceOnSuccess(t *testing.T) {
	capt := &fakeCapturer{}
	s := New("Login", WithEvidence(capt, "", true))

	s.Check(true, "ok", 1, 1)
	s.Check(false, "bad", 1, 2)
	assert.Len(t, capt.targets, 2)
}

func TestSession_CaptureFailureIsNotFatal(t *testing.T) {
	capt := &fakeCapturer{err: evidence.ErrCaptureFailed}
	node := report.NewNode(report.ExecutionKey{Test: "a"}, "")
	s := New("a", WithNode(node), WithEvidence(capt, "", false))

	assert.False(t, s.Check(false, "bad", 1, 2))
	failures := s.Failures()
	require.Len(t, failures, 1)
	assert.True(t, failures[0].Evidence.IsZero())
	assert.Empty(t, node.Evidence)
	assert.Error(t, s.Finalize())
}

type panickingCapturer struct{}

func (panickingCapturer) Capture(context.Context, evidence.Target) (report.Evidence, error) {
	panic("driver gone")
}

func TestSession_CapturePanicIsNotFatal(t *testing.T) {
	node := report.NewNode(report.ExecutionKey{Test: "Login", Invocation: "1"}, "Login")
	s := New("Login", WithNode(node), WithEvidence(panickingCapturer{}, "sess", true))

	var passed bool
	require.NotPanics(t, func() {
		passed = s.Check(false, "title check", "Dashboard", "Login Page")
	})
	assert.False(t, passed)
	require.NotPanics(t, func() { s.Check(true, "flag check", true, true) })

	require.Len(t, s.Records(), 2)
	assert.Empty(t, node.Evidence)
	assert.ErrorContains(t, s.Finalize(), "title check")
}

func TestSession_PassAndFail(t *testing.T) {
	s := New("a")
	s.Pass("step one")
	s.Fail("step two broke")

	err := s.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step two broke")
	assert.NotContains(t, err.Error(), "step one")
}

func TestSession_HelperKinds(t *testing.T) {
	s := New("a")
	assert.True(t, s.Contains("Hello, World", "World", "greeting"))
	assert.True(t, s.Matches("user-42", `^user-\d+$`, "id format"))
	assert.True(t, s.NotEqual(1, 2, "differs"))
	assert.True(t, s.False(false, "flag off"))
	assert.True(t, s.JSONPath(`{"a":{"b":1}}`, "a.b", 1, "nested"))
	assert.True(t, s.Schema(`{"id":1}`, `{"type":"object","required":["id"]}`, "shape"))
	assert.NoError(t, s.Finalize())

	assert.False(t, s.Schema(`{}`, `{"type":"object","required":["id"]}`, "shape"))
	err := s.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestSession_ConcurrentChecks(t *testing.T) {
	node := report.NewNode(report.ExecutionKey{Test: "a"}, "")
	s := New("a", WithNode(node))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Check(i%2 == 0, "check", 0, i%2)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Records(), 50)
	assert.Len(t, s.Failures(), 25)
	assert.Len(t, node.Logs, 50)
}
