package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/abdul-hamid-achik/hitreport/packages/core/config"
	"github.com/abdul-hamid-achik/hitreport/packages/core/runner"
	"github.com/abdul-hamid-achik/hitreport/packages/evidence"
	"github.com/abdul-hamid-achik/hitreport/packages/history"
	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte{0x89, 'P', 'N', 'G'}

func testConfig(t *testing.T, reporters ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ReportName = "Suite"
	cfg.ReportDir = filepath.Join(dir, "reports")
	cfg.Environment = "qa"
	cfg.Reporters = reporters
	cfg.HistoryDSN = "sqlite://" + filepath.Join(dir, "history.db")
	cfg.NoColor = config.BoolPtr(true)
	return cfg
}

func sampleTests() []*runner.Test {
	return []*runner.Test{
		{
			Name:       "login",
			Categories: []string{"smoke"},
			Session:    "s1",
			Func: func(e *runner.Execution) {
				e.Soft().Equal("Dashboard", "Dashboard", "title check")
			},
		},
		{
			Name:       "checkout",
			Categories: []string{"cart"},
			Session:    "s2",
			Func: func(e *runner.Execution) {
				e.Soft().Equal(10, 9, "total check")
				e.Soft().True(true, "still running")
			},
		},
		{Name: "search", Skip: "feature flag disabled"},
	}
}

func snapshot() evidence.Snapshotter {
	return evidence.SnapshotFunc(func(ctx context.Context, session string) ([]byte, error) {
		return png, nil
	})
}

func TestSuite_Run(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "console", "json", "junit", "html", "tap", "history", "metrics")

	var console bytes.Buffer
	s, err := New(ctx, cfg, WithSnapshotter(snapshot()), WithConsole(&console), WithVersion("test"))
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Run(ctx, sampleTests())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Leaked)
	require.NoError(t, s.Close())

	for _, name := range []string{JSONFile, JUnitFile, HTMLFile, TAPFile, MetricsFile} {
		assert.FileExists(t, filepath.Join(cfg.ReportDir, name))
	}

	data, err := os.ReadFile(filepath.Join(cfg.ReportDir, JSONFile))
	require.NoError(t, err)
	var out output.JSONOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Suite", out.Name)
	assert.Equal(t, 3, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Failed)

	var checkout output.TestRecord
	for _, rec := range out.Tests {
		if rec.Test == "checkout" {
			checkout = rec
		}
	}
	assert.Equal(t, "failed", checkout.Status)
	assert.Contains(t, checkout.Failure, "Following soft asserts failed in checkout")
	assert.Contains(t, checkout.Description, "environment: qa")
	require.NotEmpty(t, checkout.Evidence)
	for _, ev := range checkout.Evidence {
		assert.True(t, strings.HasPrefix(ev.Path, "evidence/"), ev.Path)
		assert.FileExists(t, filepath.Join(cfg.ReportDir, filepath.FromSlash(ev.Path)))
	}

	assert.Contains(t, console.String(), "Tests: 1 passed, 1 failed, 1 skipped, 3 total")

	store, err := history.Open(cfg.HistoryDSN)
	require.NoError(t, err)
	defer store.Close()
	run, records, err := store.LoadRun(ctx, s.RunID())
	require.NoError(t, err)
	assert.True(t, run.Finished)
	assert.Equal(t, 3, run.Total)
	assert.Len(t, records, 3)
}

func TestSuite_RunOnce(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, testConfig(t), WithConsole(&bytes.Buffer{}))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(ctx, nil)
	require.NoError(t, err)
	_, err = s.Run(ctx, nil)
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestSuite_ConcurrentRunOnce(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, testConfig(t), WithConsole(&bytes.Buffer{}))
	require.NoError(t, err)
	defer s.Close()

	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Run(ctx, nil)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAlreadyRun):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), already.Load())
}

func TestSuite_NoSnapshotterMeansNoEvidence(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "json")

	s, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = s.Run(ctx, sampleTests())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(cfg.EvidenceDir())
	assert.True(t, os.IsNotExist(err))
}

func TestSuite_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "pdf")
	_, err := New(context.Background(), cfg)

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "reporters", cfgErr.Field)
}

func TestSuite_ExtraSinkAndHooks(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	var before atomic.Int32

	s, err := New(ctx, testConfig(t),
		WithSink(output.NewTAPSink(output.TAPWithWriter(&buf))),
		WithHooks([]runner.Hook{func(e *runner.Execution) error { before.Add(1); return nil }}, nil),
	)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(ctx, sampleTests()[:2])
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1..2\n")
	assert.Equal(t, int32(2), before.Load())
}
