package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds every Prometheus metric the engine exposes, one
// registry per process. The typed fields are exported for direct
// recording rather than through a stringly-typed dispatch table; no
// component of the engine records to them, so they are served at zero.
type Collector struct {
	registry *prometheus.Registry

	// C7 — ingestion
	IngestionBatches  *prometheus.CounterVec
	IngestionDuration *prometheus.HistogramVec
	NodesProcessed    prometheus.Counter
	EdgesProcessed    prometheus.Counter

	// C4 — CDC journal
	JournalSize    prometheus.Gauge
	JournalAppends prometheus.Counter

	// C5 — broadcast hub
	SubscribersActive prometheus.Gauge
	FanoutDropped     *prometheus.CounterVec
	SubscriberQueue   *prometheus.GaugeVec

	// C8 — query facade
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec

	// HTTP surface
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates (or returns, singleton-style so tests and
// repeated wiring never double-register) the process's metrics
// collector under the given namespace.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		IngestionBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingestion_batches_total",
			Help: "Total number of ingestion batches, by outcome.",
		}, []string{"outcome"}),

		IngestionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ingestion_batch_duration_seconds",
			Help: "Ingestion batch duration in seconds.", Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		NodesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "nodes_processed_total",
			Help: "Total number of nodes processed across all ingestion batches.",
		}),

		EdgesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "edges_processed_total",
			Help: "Total number of relationships processed across all ingestion batches.",
		}),

		JournalSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "journal_size_events",
			Help: "Current number of events retained in the journal.",
		}),

		JournalAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "journal_appends_total",
			Help: "Total number of events appended to the journal.",
		}),

		SubscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hub_subscribers_active",
			Help: "Current number of live broadcast subscribers.",
		}),

		FanoutDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "hub_fanout_dropped_total",
			Help: "Total number of events dropped because a subscriber's queue was full.",
		}, []string{"reason"}),

		SubscriberQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hub_subscriber_queue_depth",
			Help: "Current queue depth for a subscriber, by subscriber id.",
		}, []string{"subscriber"}),

		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help: "Query facade operation duration in seconds, by operation.", Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_errors_total",
			Help: "Total number of query facade errors, by operation and error kind.",
		}, []string{"operation", "kind"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Total number of HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		c.IngestionBatches, c.IngestionDuration, c.NodesProcessed, c.EdgesProcessed,
		c.JournalSize, c.JournalAppends,
		c.SubscribersActive, c.FanoutDropped, c.SubscriberQueue,
		c.QueryDuration, c.QueryErrors,
		c.HTTPRequests, c.HTTPDuration,
	)

	globalCollector = c
	return c
}

// ResetForTesting clears the singleton so repeated test runs in the
// same process don't hit prometheus's duplicate-registration panic.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// Handler serves the registry's metrics in the Prometheus exposition
// format, to be mounted at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records a facade operation's outcome and latency.
func (c *Collector) ObserveQuery(operation string, duration time.Duration, errKind string) {
	c.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errKind != "" {
		c.QueryErrors.WithLabelValues(operation, errKind).Inc()
	}
}

// ObserveIngestionBatch records a completed or failed ingestion batch.
func (c *Collector) ObserveIngestionBatch(outcome string, duration time.Duration, nodes, edges int) {
	c.IngestionBatches.WithLabelValues(outcome).Inc()
	c.IngestionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.NodesProcessed.Add(float64(nodes))
	c.EdgesProcessed.Add(float64(edges))
}
