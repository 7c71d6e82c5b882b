// Package metrics exports style and fetch events as Prometheus metrics.
//
// A [Collector] implements the hook interfaces of pkg/observability. Register
// it once at startup and serve the registry:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(reg)
//	c.Install()
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/tilestyle/pkg/observability"
)

const namespace = "tilestyle"

// Collector records cache, HTTP and style events.
type Collector struct {
	cacheLookups *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	styleParses      *prometheus.CounterVec
	styleLayers      prometheus.Gauge
	styleSources     prometheus.Gauge
	recalcLatency    prometheus.Histogram
	transitions      prometheus.Gauge
	resourceFailures *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Resource cache lookups by resource kind and result (hit, miss, stale).",
		}, []string{"kind", "result"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Resource cache writes by resource kind.",
		}, []string{"kind"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the resource cache by resource kind.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses by host and status code.",
		}, []string{"host", "code"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP transport failures by host.",
		}, []string{"host"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by host.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		styleParses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "style_parses_total",
			Help:      "Stylesheet parse attempts by result (ok, error).",
		}, []string{"result"}),
		styleLayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "style_layers",
			Help:      "Layers in the last parsed stylesheet.",
		}),
		styleSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "style_sources",
			Help:      "Sources in the last parsed stylesheet.",
		}),
		recalcLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "style_recalculate_duration_seconds",
			Help:      "Duration of one property recalculation pass.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		transitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "style_transitions_pending",
			Help:      "1 while the last recalculation left a transition running.",
		}),
		resourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "style_resource_failures_total",
			Help:      "Resource loading failures surfaced to the style observer, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.cacheLookups, c.cacheWrites, c.cacheBytes,
		c.httpRequests, c.httpErrors, c.httpLatency,
		c.styleParses, c.styleLayers, c.styleSources, c.recalcLatency, c.transitions, c.resourceFailures,
	)
	return c
}

// Install registers c as the global style, cache and HTTP hooks.
func (c *Collector) Install() {
	observability.SetStyleHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

func (c *Collector) OnCacheHit(_ context.Context, kind string) {
	c.cacheLookups.WithLabelValues(kind, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, kind string) {
	c.cacheLookups.WithLabelValues(kind, "miss").Inc()
}

func (c *Collector) OnCacheStale(_ context.Context, kind string) {
	c.cacheLookups.WithLabelValues(kind, "stale").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, kind string, size int) {
	c.cacheWrites.WithLabelValues(kind).Inc()
	c.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (c *Collector) OnRequest(context.Context, string, string, string) {}

func (c *Collector) OnResponse(_ context.Context, _, host, _ string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(host, statusLabel(statusCode)).Inc()
	c.httpLatency.WithLabelValues(host).Observe(duration.Seconds())
}

func (c *Collector) OnError(_ context.Context, _, host, _ string, _ error) {
	c.httpErrors.WithLabelValues(host).Inc()
}

func (c *Collector) OnStyleParsed(_ context.Context, sources, layers int, _ time.Duration, err error) {
	if err != nil {
		c.styleParses.WithLabelValues("error").Inc()
		return
	}
	c.styleParses.WithLabelValues("ok").Inc()
	c.styleSources.Set(float64(sources))
	c.styleLayers.Set(float64(layers))
}

func (c *Collector) OnRecalculate(_ context.Context, _ int, pending bool, duration time.Duration) {
	c.recalcLatency.Observe(duration.Seconds())
	if pending {
		c.transitions.Set(1)
	} else {
		c.transitions.Set(0)
	}
}

func (c *Collector) OnResourceFailed(_ context.Context, kind string, _ error) {
	c.resourceFailures.WithLabelValues(kind).Inc()
}

// statusLabel groups status codes into classes to bound label cardinality.
func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "other"
}

var (
	_ observability.StyleHooks = (*Collector)(nil)
	_ observability.CacheHooks = (*Collector)(nil)
	_ observability.HTTPHooks  = (*Collector)(nil)
)
