package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs           *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	overdueItems   *prometheus.GaugeVec
	overdueBalance *prometheus.GaugeVec
	capacity       prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetOverdue publishes the count and balance of overdue items of one kind.
func (m *Metrics) SetOverdue(kind string, count int, balance float64) {
	if m == nil {
		return
	}
	m.overdueItems.WithLabelValues(kind).Set(float64(count))
	m.overdueBalance.WithLabelValues(kind).Set(balance)
}

// SetConsignmentCapacity publishes how many consignments stock still covers.
func (m *Metrics) SetConsignmentCapacity(n int64) {
	if m == nil {
		return
	}
	m.capacity.Set(float64(n))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ricemill_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ricemill_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ricemill_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	overdueItems := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ricemill_overdue_items",
		Help: "Records past their due date with a balance, by kind.",
	}, []string{"kind"})
	overdueBalance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ricemill_overdue_balance",
		Help: "Outstanding balance of overdue records, by kind.",
	}, []string{"kind"})
	capacity := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ricemill_consignment_capacity",
		Help: "Consignments the current gunny and sticker stock can still cover.",
	})
	registerer.MustRegister(runs, failures, duration, overdueItems, overdueBalance, capacity)
	return &Metrics{
		runs:           runs,
		failures:       failures,
		duration:       duration,
		overdueItems:   overdueItems,
		overdueBalance: overdueBalance,
		capacity:       capacity,
	}
}
