package metrics

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedNode(name string, status report.Status, d time.Duration, categories ...string) *report.Node {
	n := report.NewNode(report.ExecutionKey{Test: name, Invocation: "inv-" + name}, name)
	n.StartTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n.EndTime = n.StartTime.Add(d)
	n.AddCategories(categories...)
	_ = n.SetStatus(report.StatusRunning)
	_ = n.SetStatus(status)
	return n
}

func failedWithSoftAsserts() *report.Node {
	n := finishedNode("checkout", report.StatusFailed, 2*time.Second, "cart")
	n.Log(report.LogEntry{Level: report.LevelFail, Message: "total Actual: 9 Expected: 10",
		Evidence: &report.Evidence{Path: "evidence/a.png"}})
	n.Log(report.LogEntry{Level: report.LevelFail, Message: "tax Actual: 0 Expected: 1",
		Evidence: &report.Evidence{Path: "evidence/b.png"}})
	n.Log(report.LogEntry{Level: report.LevelFail, Message: "Following soft asserts failed in checkout()"})
	return n
}

func TestSink_Accept(t *testing.T) {
	s := NewSink(map[string]string{"environment": "staging"})

	s.Accept(finishedNode("login", report.StatusPassed, 300*time.Millisecond, "smoke", "auth"))
	s.Accept(finishedNode("search", report.StatusSkipped, 0))
	s.Accept(failedWithSoftAsserts())

	assert.Equal(t, 1.0, testutil.ToFloat64(s.testsTotal.WithLabelValues("passed", "smoke")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.testsTotal.WithLabelValues("passed", "auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.testsTotal.WithLabelValues("skipped", NoCategory)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.testsTotal.WithLabelValues("failed", "cart")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.softFailures.WithLabelValues("checkout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.evidenceTotal))

	m := &dto.Metric{}
	require.NoError(t, s.testDuration.WithLabelValues("failed").(prometheus.Histogram).Write(m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.InDelta(t, 2.0, m.GetHistogram().GetSampleSum(), 0.001)

	require.NoError(t, s.Flush(output.RunSummary{Leaked: 1, Duration: 5 * time.Second}))
	assert.Equal(t, 0.5, testutil.ToFloat64(s.passRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.leakedExecutions))
	assert.Equal(t, 5.0, testutil.ToFloat64(s.runDuration))
}

func TestSink_ConstLabels(t *testing.T) {
	s := NewSink(map[string]string{"browser-type": "chrome"})
	s.Accept(finishedNode("login", report.StatusPassed, time.Second))

	families, err := s.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() != "hitreport_tests_total" {
			continue
		}
		found = true
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			if lp.GetName() == "browser_type" {
				assert.Equal(t, "chrome", lp.GetValue())
			}
		}
	}
	assert.True(t, found)
}

func TestSink_Textfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitreport.prom")
	s := NewSink(nil, WithTextfile(path))
	s.Accept(finishedNode("login", report.StatusPassed, time.Second, "smoke"))
	require.NoError(t, s.Flush(output.RunSummary{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hitreport_tests_total{category="smoke",status="passed"} 1`)
}

func TestSinks_AreIndependent(t *testing.T) {
	a := NewSink(nil)
	b := NewSink(nil)
	a.Accept(finishedNode("login", report.StatusPassed, time.Second))

	assert.Equal(t, 1, testutil.CollectAndCount(a.testsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(b.testsTotal))
}

func TestServe(t *testing.T) {
	s := NewSink(nil)
	s.Accept(finishedNode("login", report.StatusPassed, time.Second))

	srv, err := Serve("127.0.0.1:0", s)
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "hitreport_tests_total"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "browser_type", sanitizeName("browser-type"))
	assert.Equal(t, "_1st", sanitizeName("1st"))
	assert.Equal(t, "env", sanitizeName("env"))
}
