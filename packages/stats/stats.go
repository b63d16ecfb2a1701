package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

const (
	// Durations are recorded in microseconds, from 1us to one hour.
	minValue    = 1
	maxValue    = int64(time.Hour / time.Microsecond)
	sigFigures  = 3
	slowestKept = 5
)

// Collector accumulates statistics from finalized nodes. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	histogram  *hdrhistogram.Histogram
	categories map[string]*categoryStats
	counts     map[report.Status]int
	evidence   int
	slowest    []Timing
}

type categoryStats struct {
	counts    map[report.Status]int
	histogram *hdrhistogram.Histogram
}

// Timing is the duration of one execution
type Timing struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

func NewCollector() *Collector {
	return &Collector{
		histogram:  newHistogram(),
		categories: make(map[string]*categoryStats),
		counts:     make(map[report.Status]int),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minValue, maxValue, sigFigures)
}

// Accept records node. Nodes without a duration count but are not timed.
func (c *Collector) Accept(node *report.Node) {
	status := node.Status()
	d := node.Duration()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[status]++
	c.evidence += len(node.Evidence)
	if d > 0 {
		_ = c.histogram.RecordValue(clamp(d))
		c.trackSlowest(Timing{Name: node.Name, Duration: d})
	}

	for _, cat := range node.Categories {
		cs, ok := c.categories[cat]
		if !ok {
			cs = &categoryStats{counts: make(map[report.Status]int), histogram: newHistogram()}
			c.categories[cat] = cs
		}
		cs.counts[status]++
		if d > 0 {
			_ = cs.histogram.RecordValue(clamp(d))
		}
	}
}

func (c *Collector) trackSlowest(t Timing) {
	c.slowest = append(c.slowest, t)
	sort.SliceStable(c.slowest, func(i, j int) bool {
		return c.slowest[i].Duration > c.slowest[j].Duration
	})
	if len(c.slowest) > slowestKept {
		c.slowest = c.slowest[:slowestKept]
	}
}

func clamp(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minValue {
		us = minValue
	}
	if us > maxValue {
		us = maxValue
	}
	return us
}

// Summary is a point-in-time view of a Collector
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Evidence int `json:"evidence"`

	// Duration percentiles over timed executions
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
	Min  time.Duration `json:"min"`
	Max  time.Duration `json:"max"`
	Mean time.Duration `json:"mean"`

	Slowest    []Timing                    `json:"slowest,omitempty"`
	Categories map[string]*CategorySummary `json:"categories,omitempty"`
}

// CategorySummary holds the statistics of one category
type CategorySummary struct {
	Name    string        `json:"name"`
	Total   int           `json:"total"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	Mean    time.Duration `json:"mean"`
}

// PassRate is the share of passed executions among those not skipped.
func (s *Summary) PassRate() float64 {
	ran := s.Passed + s.Failed
	if ran == 0 {
		return 0
	}
	return float64(s.Passed) / float64(ran)
}

func (c *Collector) Summary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Passed:   c.counts[report.StatusPassed],
		Failed:   c.counts[report.StatusFailed],
		Skipped:  c.counts[report.StatusSkipped],
		Evidence: c.evidence,
		Slowest:  append([]Timing(nil), c.slowest...),
	}
	for _, n := range c.counts {
		s.Total += n
	}
	if c.histogram.TotalCount() > 0 {
		s.P50 = micros(c.histogram.ValueAtQuantile(50))
		s.P95 = micros(c.histogram.ValueAtQuantile(95))
		s.P99 = micros(c.histogram.ValueAtQuantile(99))
		s.Min = micros(c.histogram.Min())
		s.Max = micros(c.histogram.Max())
		s.Mean = time.Duration(c.histogram.Mean()) * time.Microsecond
	}

	if len(c.categories) > 0 {
		s.Categories = make(map[string]*CategorySummary, len(c.categories))
		for name, cs := range c.categories {
			sum := &CategorySummary{
				Name:    name,
				Passed:  cs.counts[report.StatusPassed],
				Failed:  cs.counts[report.StatusFailed],
				Skipped: cs.counts[report.StatusSkipped],
			}
			for _, n := range cs.counts {
				sum.Total += n
			}
			if cs.histogram.TotalCount() > 0 {
				sum.P50 = micros(cs.histogram.ValueAtQuantile(50))
				sum.P95 = micros(cs.histogram.ValueAtQuantile(95))
				sum.Mean = time.Duration(cs.histogram.Mean()) * time.Microsecond
			}
			s.Categories[name] = sum
		}
	}
	return s
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
