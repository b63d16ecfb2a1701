package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedNode(name string, status report.Status, d time.Duration, categories ...string) *report.Node {
	n := report.NewNode(report.ExecutionKey{Test: name, Invocation: name}, name)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n.StartTime = start
	n.EndTime = start.Add(d)
	n.AddCategories(categories...)
	_ = n.SetStatus(report.StatusRunning)
	_ = n.SetStatus(status)
	return n
}

func TestCollector_Summary(t *testing.T) {
	c := NewCollector()
	c.Accept(finishedNode("a", report.StatusPassed, 100*time.Millisecond, "smoke"))
	c.Accept(finishedNode("b", report.StatusPassed, 200*time.Millisecond, "smoke", "login"))
	c.Accept(finishedNode("c", report.StatusFailed, 300*time.Millisecond, "login"))
	c.Accept(finishedNode("d", report.StatusSkipped, 0))

	s := c.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.InDelta(t, 2.0/3.0, s.PassRate(), 0.0001)

	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Min), float64(time.Millisecond))
	assert.InDelta(t, float64(300*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64(s.P50), float64(time.Millisecond))

	require.Len(t, s.Slowest, 3)
	assert.Equal(t, "c", s.Slowest[0].Name)
	assert.Equal(t, "a", s.Slowest[2].Name)

	require.Contains(t, s.Categories, "login")
	assert.Equal(t, 2, s.Categories["login"].Total)
	assert.Equal(t, 1, s.Categories["login"].Failed)
	assert.Equal(t, 2, s.Categories["smoke"].Passed)
}

func TestCollector_Empty(t *testing.T) {
	s := NewCollector().Summary()
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.P99)
	assert.Zero(t, s.PassRate())
	assert.Nil(t, s.Categories)
}

func TestCollector_SlowestBounded(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 20; i++ {
		c.Accept(finishedNode(fmt.Sprintf("t%d", i), report.StatusPassed, time.Duration(i)*time.Millisecond))
	}
	s := c.Summary()
	require.Len(t, s.Slowest, slowestKept)
	assert.Equal(t, "t20", s.Slowest[0].Name)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				c.Accept(finishedNode(fmt.Sprintf("%d-%d", w, i), report.StatusPassed, time.Millisecond, "load"))
			}
		}(w)
	}
	wg.Wait()

	s := c.Summary()
	assert.Equal(t, 200, s.Total)
	assert.Equal(t, 200, s.Categories["load"].Total)
}
