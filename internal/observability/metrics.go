package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safety_training"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	SamplesConsumed      prometheus.Counter
	NotificationsWritten prometheus.Counter
	SampleErrors         prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	HazardAlerts        *prometheus.CounterVec // labels: kind, severity
	NotificationsPushed *prometheus.CounterVec // labels: severity
	FeedUnread          prometheus.Gauge
	BadgesAwarded       *prometheus.CounterVec // labels: badge
	StoreReads          *prometheus.CounterVec // labels: result={hit,expired,miss,corrupt,error}
	TickFailures        prometheus.Counter
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		SamplesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_consumed_total",
			Help:      h("Total weather samples read from the source topic."),
		}),
		NotificationsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_written_total",
			Help:      h("Total notifications written to the sink topic."),
		}),
		SampleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_errors_total",
			Help:      h("Total samples that could not be decoded."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      h("1 when the hazard pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      h("Number of samples per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      h("Duration of a complete extract-classify-load cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		HazardAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hazard_alerts_total",
			Help:      h("Hazard alerts raised by kind and severity."),
		}, []string{"kind", "severity"}),
		NotificationsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_pushed_total",
			Help:      h("Notifications pushed onto the feed by severity."),
		}, []string{"severity"}),
		FeedUnread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_unread",
			Help:      h("Unread notifications currently retained in the feed."),
		}),
		BadgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_awarded_total",
			Help:      h("Badges newly granted to learners."),
		}, []string{"badge"}),
		StoreReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reads_total",
			Help:      h("Collection reads by outcome."),
		}, []string{"result"}),
		TickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      h("Scheduled ticks that returned an error or panicked."),
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.SamplesConsumed,
		m.NotificationsWritten,
		m.SampleErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.HazardAlerts,
		m.NotificationsPushed,
		m.FeedUnread,
		m.BadgesAwarded,
		m.StoreReads,
		m.TickFailures,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
