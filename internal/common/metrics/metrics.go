package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tripdesk/internal/common/logger"
)

// Collector owns a private registry. All methods are safe on a nil receiver so
// components can run without metrics.
type Collector struct {
	reg *prometheus.Registry

	RefreshCycles   *prometheus.CounterVec // result label: success|transport_error|validation_error|stale
	RefreshDuration prometheus.Histogram
	TicksDropped    prometheus.Counter
	TripsLoaded     prometheus.Gauge
	Degraded        prometheus.Gauge

	Mutations *prometheus.CounterVec // action, result labels

	LookupFailures *prometheus.CounterVec // lookup label: lines|consortiums
	CacheHits      *prometheus.CounterVec // lookup label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripdesk_refresh_cycles_total",
			Help: "Refresh cycles by result.",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripdesk_refresh_duration_seconds",
			Help:    "Duration of a query, fetch and normalize cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		TicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripdesk_refresh_ticks_dropped_total",
			Help: "Timer ticks dropped because a cycle was still in flight.",
		}),
		TripsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripdesk_trips_loaded",
			Help: "Number of trips in the current list.",
		}),
		Degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripdesk_degraded",
			Help: "1 while the demo dataset is shown instead of live data.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripdesk_mutations_total",
			Help: "Mutation calls by action and result.",
		}, []string{"action", "result"}),
		LookupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripdesk_lookup_failures_total",
			Help: "Failed catalog lookups.",
		}, []string{"lookup"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripdesk_catalog_cache_hits_total",
			Help: "Catalog lookups served from cache.",
		}, []string{"lookup"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripdesk_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripdesk_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripdesk_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripdesk_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripdesk_refresh_interval_seconds",
			Help: "Automatic refresh interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.RefreshCycles, c.RefreshDuration, c.TicksDropped, c.TripsLoaded, c.Degraded,
		c.Mutations, c.LookupFailures, c.CacheHits,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.RefreshInterval,
	)

	c.RefreshInterval.Set(refreshInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error", "error", err)
		}
	}()
	log.Info("Metrics listening", "addr", addr)
	return srv
}

func (c *Collector) RefreshObserve(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.RefreshCycles.WithLabelValues(result).Inc()
	if d > 0 {
		c.RefreshDuration.Observe(d.Seconds())
	}
}

func (c *Collector) TickDroppedInc() {
	if c == nil {
		return
	}
	c.TicksDropped.Inc()
}

func (c *Collector) TripsSet(n int, degraded bool) {
	if c == nil {
		return
	}
	c.TripsLoaded.Set(float64(n))
	if degraded {
		c.Degraded.Set(1)
	} else {
		c.Degraded.Set(0)
	}
}

func (c *Collector) MutationInc(action string, ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	c.Mutations.WithLabelValues(action, result).Inc()
}

func (c *Collector) LookupFailedInc(lookup string) {
	if c == nil {
		return
	}
	c.LookupFailures.WithLabelValues(lookup).Inc()
}

func (c *Collector) CacheHitInc(lookup string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(lookup).Inc()
}

func (c *Collector) NATSPublishedInc() {
	if c == nil {
		return
	}
	c.NATSPublished.Inc()
}

func (c *Collector) NATSPublishErrInc() {
	if c == nil {
		return
	}
	c.NATSPublishErrs.Inc()
}

func (c *Collector) PublishObserve(d time.Duration) {
	if c == nil {
		return
	}
	c.PublishDuration.Observe(d.Seconds())
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
