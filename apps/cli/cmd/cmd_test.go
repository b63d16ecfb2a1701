package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/core/config"
	"github.com/abdul-hamid-achik/hitreport/packages/history"
	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFlag, logLevelFlag = "", "warn"
	formatFlag, outputFlag, dbFlag = "console", "", ""
	watchFlag, exitCodeFlag, verboseFlag = false, false, false
	showConfigFlag, checkDriverFlag, forceInit = false, false, false
	limitFlag = 20

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// recordRun stores one run with a passed and a failed test
func recordRun(t *testing.T, dsn string) string {
	t.Helper()
	store, err := history.Open(dsn)
	require.NoError(t, err)
	defer store.Close()

	rec, err := history.NewRecorder(context.Background(), store, "Nightly", "staging", "")
	require.NoError(t, err)

	collector := stats.NewCollector()
	for _, tc := range []struct {
		name   string
		status report.Status
	}{
		{"login", report.StatusPassed},
		{"checkout", report.StatusFailed},
	} {
		node := report.NewNode(report.ExecutionKey{Test: tc.name, Invocation: "inv-" + tc.name}, tc.name)
		node.StartTime = time.Now()
		node.EndTime = node.StartTime.Add(20 * time.Millisecond)
		_ = node.SetStatus(report.StatusRunning)
		if tc.status == report.StatusFailed {
			node.FailureMessage = "expected 2 items, got 1"
			node.Log(report.LogEntry{Level: report.LevelFail, Message: node.FailureMessage})
		}
		_ = node.SetStatus(tc.status)
		collector.Accept(node)
		rec.Accept(node)
	}
	require.NoError(t, rec.Flush(output.RunSummary{Duration: time.Second, Stats: collector.Summary()}))
	return rec.RunID()
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitUsageError, exitCode(errors.New("bad flag")))
	assert.Equal(t, ExitConfigError, exitCode(&config.ConfigurationError{Field: "reportDir", Reason: "is required"}))
	assert.Equal(t, ExitNetworkError, exitCode(withExitCode(ExitNetworkError, errors.New("refused"))))
	assert.NoError(t, withExitCode(ExitReportError, nil))
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hitreport version dev")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "hitreport.yaml")
		require.NoError(t, os.WriteFile(path, []byte("reportName: Nightly\nreporters: [console, junit]\n"), 0644))

		out, err := runCLI(t, "validate", "--config", path, "--show")
		require.NoError(t, err)
		assert.Contains(t, out, path)
		assert.Contains(t, out, "reportName: Nightly")
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("reporters: [pdf]\n"), 0644))

		_, err := runCLI(t, "validate", "--config", path)
		require.Error(t, err)
		assert.Equal(t, ExitConfigError, exitCode(err))
		assert.Contains(t, err.Error(), `unknown reporter "pdf"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runCLI(t, "validate", "--config", filepath.Join(dir, "nope.yaml"))
		assert.Equal(t, ExitConfigError, exitCode(err))
	})
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = runCLI(t, "init")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(filepath.Join(dir, "hitreport.yaml"))
	require.NoError(t, err)
	assert.Contains(t, cfg.Reporters, "history")
	assert.NotEmpty(t, cfg.HistoryDSN)
	assert.NoError(t, cfg.Validate())

	_, err = runCLI(t, "init")
	assert.Equal(t, ExitUsageError, exitCode(err), "refuses to overwrite without --force")

	_, err = runCLI(t, "init", "--force")
	assert.NoError(t, err)
}

func TestReport(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")
	runID := recordRun(t, dsn)

	t.Run("latest as json", func(t *testing.T) {
		out, err := runCLI(t, "report", "--db", dsn, "--format", "json")
		require.NoError(t, err)

		var doc output.JSONOutput
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "Nightly", doc.Name)
		assert.Equal(t, 2, doc.Summary.Total)
		assert.Equal(t, 1, doc.Summary.Failed)
	})

	t.Run("by id to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "junit.xml")
		_, err := runCLI(t, "report", runID, "--db", dsn, "--format", "junit", "--output", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `name="checkout"`)
		assert.Contains(t, string(data), "expected 2 items, got 1")
	})

	t.Run("exit code on failures", func(t *testing.T) {
		_, err := runCLI(t, "report", "--db", dsn, "--format", "tap", "--exit-code")
		assert.Equal(t, ExitTestFailure, exitCode(err))
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := runCLI(t, "report", "missing", "--db", dsn)
		assert.ErrorIs(t, err, history.ErrRunNotFound)
		assert.Equal(t, ExitReportError, exitCode(err))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := runCLI(t, "report", "--db", dsn, "--format", "pdf")
		assert.Equal(t, ExitUsageError, exitCode(err))
	})
}

func TestHistory(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")

	out, err := runCLI(t, "history", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	runID := recordRun(t, dsn)
	out, err = runCLI(t, "history", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "Nightly")
	assert.Contains(t, out, "staging")
}

func TestReport_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hitreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reportName: Nightly\n"), 0644))

	_, err := runCLI(t, "report", "--config", path)
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestCompleteRunIDs(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")
	runID := recordRun(t, dsn)

	out, err := runCLI(t, "__complete", "report", "--db", dsn, "")
	require.NoError(t, err)
	assert.Contains(t, out, runID+"\tNightly")
}

func TestCompletion(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "hitreport")
}
