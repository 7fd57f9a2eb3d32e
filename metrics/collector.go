// Package metrics exports threadkit scheduler statistics to Prometheus.
//
// The collector reads a Stats snapshot on every scrape, so it adds nothing to
// the scheduler's hot path.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(env))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tahsin716/threadkit"
)

// StatsSource is what the collector scrapes. *threadkit.Env implements it.
type StatsSource interface {
	Stats() threadkit.Stats
	MaxThreads() int
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	namespace   string
	constLabels prometheus.Labels
}

// WithNamespace replaces the default "threadkit" metric namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithConstLabels attaches labels to every series, e.g. to tell Envs apart.
func WithConstLabels(l prometheus.Labels) Option {
	return func(o *options) { o.constLabels = l }
}

// Collector implements prometheus.Collector over a StatsSource.
type Collector struct {
	src StatsSource

	submitted  *prometheus.Desc
	completed  *prometheus.Desc
	stolen     *prometheus.Desc
	overflowed *prometheus.Desc
	inline     *prometheus.Desc
	panicked   *prometheus.Desc
	inFlight   *prometheus.Desc
	workers    *prometheus.Desc
	maxThreads *prometheus.Desc
	queueDepth *prometheus.Desc
	workerJobs *prometheus.Desc
	latencyMax *prometheus.Desc
}

// NewCollector creates a collector for src.
func NewCollector(src StatsSource, opts ...Option) *Collector {
	o := options{namespace: "threadkit"}
	for _, opt := range opts {
		opt(&o)
	}

	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(o.namespace, "", name), help, labels, o.constLabels)
	}

	return &Collector{
		src:        src,
		submitted:  desc("jobs_submitted_total", "Jobs handed to the scheduler"),
		completed:  desc("jobs_completed_total", "Jobs that finished, including panicked ones"),
		stolen:     desc("jobs_stolen_total", "Jobs taken from another worker's deque"),
		overflowed: desc("jobs_overflowed_total", "Jobs spilled to the shared FIFO because every ring was full"),
		inline:     desc("jobs_inline_total", "Jobs run by the submitting goroutine because every ring was full"),
		panicked:   desc("jobs_panicked_total", "Raw scheduler jobs that panicked"),
		inFlight:   desc("jobs_in_flight", "Jobs submitted but not yet completed"),
		workers:    desc("workers", "Scheduler worker goroutines"),
		maxThreads: desc("max_threads", "Goroutines a parallel region may use, caller included"),
		queueDepth: desc("queue_depth", "Jobs waiting in rings, deques and the shared FIFO"),
		workerJobs: desc("worker_jobs_executed_total", "Jobs executed per worker of the current scheduler", "worker"),
		latencyMax: desc("job_latency_max_seconds", "Longest submission-to-completion time seen"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.submitted, c.completed, c.stolen, c.overflowed, c.inline, c.panicked,
		c.inFlight, c.workers, c.maxThreads, c.queueDepth, c.workerJobs, c.latencyMax,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.submitted, st.Submitted)
	counter(c.completed, st.Completed)
	counter(c.stolen, st.Stolen)
	counter(c.overflowed, st.Overflowed)
	counter(c.inline, st.InlineExecuted)
	counter(c.panicked, st.Panicked)

	gauge(c.inFlight, float64(st.InFlight))
	gauge(c.workers, float64(st.NumWorkers))
	gauge(c.maxThreads, float64(c.src.MaxThreads()))
	gauge(c.queueDepth, float64(st.QueueDepth))
	gauge(c.latencyMax, st.LatencyMax.Seconds())

	for _, ws := range st.WorkerStats {
		counter(c.workerJobs, ws.TasksExecuted, strconv.Itoa(ws.WorkerID))
	}
}
