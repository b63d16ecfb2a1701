// Package metrics exports test execution results as Prometheus metrics.
package metrics

import (
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricsNamespace = "hitreport"
	// NoCategory labels tests without a category
	NoCategory = "none"
)

// Sink records finalized nodes as Prometheus metrics. Metrics are registered
// on the sink's own registry so that several runs in one process do not share
// counters.
type Sink struct {
	registry *prometheus.Registry

	testsTotal       *prometheus.CounterVec
	testDuration     *prometheus.HistogramVec
	softFailures     *prometheus.CounterVec
	evidenceTotal    prometheus.Counter
	leakedExecutions prometheus.Gauge
	runDuration      prometheus.Gauge
	passRate         prometheus.Gauge

	mu     sync.Mutex
	passed int
	total  int

	textfile string
}

// Option is a functional option for Sink
type Option func(*Sink)

// WithTextfile writes the metrics in Prometheus text format to path on Flush,
// for the node exporter textfile collector.
func WithTextfile(path string) Option {
	return func(s *Sink) {
		s.textfile = path
	}
}

// NewSink creates a metrics sink. Labels are added to every metric, e.g. the environment.
func NewSink(labels map[string]string, opts ...Option) *Sink {
	constLabels := prometheus.Labels{}
	for k, v := range labels {
		constLabels[sanitizeName(k)] = v
	}

	s := &Sink{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        "tests_total",
			Help:        "Finished test executions by status and category",
			ConstLabels: constLabels,
		}, []string{"status", "category"}),
		testDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   MetricsNamespace,
			Name:        "test_duration_seconds",
			Help:        "Duration of test executions",
			ConstLabels: constLabels,
			Buckets:     []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		softFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        "assertion_failures_total",
			Help:        "Failed assertions logged by test executions",
			ConstLabels: constLabels,
		}, []string{"test"}),
		evidenceTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        "evidence_total",
			Help:        "Evidence artifacts attached to reports",
			ConstLabels: constLabels,
		}),
		leakedExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        "unfinished_executions",
			Help:        "Executions started but never finalized in the last run",
			ConstLabels: constLabels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        "run_duration_seconds",
			Help:        "Wall time of the last run",
			ConstLabels: constLabels,
		}),
		passRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        "pass_rate",
			Help:        "Passed over non-skipped executions in the last run",
			ConstLabels: constLabels,
		}),
	}
	s.registry.MustRegister(
		s.testsTotal,
		s.testDuration,
		s.softFailures,
		s.evidenceTotal,
		s.leakedExecutions,
		s.runDuration,
		s.passRate,
	)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the metrics are registered on
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Sink) Accept(node *report.Node) {
	status := node.Status()
	statusLabel := status.String()

	categories := node.Categories
	if len(categories) == 0 {
		categories = []string{NoCategory}
	}
	for _, c := range categories {
		s.testsTotal.WithLabelValues(statusLabel, c).Inc()
	}
	if d := node.Duration(); d > 0 {
		s.testDuration.WithLabelValues(statusLabel).Observe(d.Seconds())
	}

	if n := assertionFailures(node); n > 0 {
		s.softFailures.WithLabelValues(node.Key.Test).Add(float64(n))
	}
	s.evidenceTotal.Add(float64(len(node.Evidence)))

	if status == report.StatusSkipped {
		return
	}
	s.mu.Lock()
	s.total++
	if status == report.StatusPassed {
		s.passed++
	}
	s.mu.Unlock()
}

func (s *Sink) Flush(summary output.RunSummary) error {
	s.leakedExecutions.Set(float64(summary.Leaked))
	s.runDuration.Set(summary.Duration.Seconds())

	s.mu.Lock()
	if s.total > 0 {
		s.passRate.Set(float64(s.passed) / float64(s.total))
	}
	s.mu.Unlock()

	if s.textfile != "" {
		return prometheus.WriteToTextfile(s.textfile, s.registry)
	}
	return nil
}

// assertionFailures counts fail entries, excluding the closing entry a failed
// node gets with its aggregated message.
func assertionFailures(node *report.Node) int {
	n := 0
	for _, e := range node.Logs {
		if e.Level == report.LevelFail {
			n++
		}
	}
	if node.Status() == report.StatusFailed && n > 0 {
		n--
	}
	return n
}

// sanitizeName makes s a valid Prometheus label name
func sanitizeName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
