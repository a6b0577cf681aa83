package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agile-live/internal/pipeline"
)

// Metrics holds the service collectors. All methods are safe on a nil receiver
// so callers can run without metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	refreshTotal      *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	price             *prometheus.GaugeVec
	fallback          prometheus.Gauge
	peakSlots         prometheus.Gauge
	lastRefresh       prometheus.Gauge
	subscribers       prometheus.Gauge
	publishErrors     *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agile_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agile_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agile_refresh_total",
			Help: "Scheduled refreshes by outcome (ok, no_data, error).",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agile_upstream_fetch_duration_seconds",
			Help:    "Histogram of unit-rate fetch durations.",
			Buckets: prometheus.DefBuckets,
		}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agile_price_pence_per_kwh",
			Help: "Latest analysed prices inc. VAT by kind (current, next, min, max, avg).",
		}, []string{"kind"}),
		fallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agile_day_fallback",
			Help: "1 when the last analysis used fallback records instead of today's.",
		}),
		peakSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agile_peak_window_slots",
			Help: "Number of slots in the detected peak window.",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agile_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful analysis.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agile_ws_subscribers",
			Help: "Connected WebSocket subscribers.",
		}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agile_publish_errors_total",
			Help: "Failed publishes by sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.refreshTotal,
		m.fetchDuration,
		m.price,
		m.fallback,
		m.peakSlots,
		m.lastRefresh,
		m.subscribers,
		m.publishErrors,
	)
	return m
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) FetchDone(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) RefreshFailed(noData bool) {
	if m == nil {
		return
	}
	if noData {
		m.refreshTotal.WithLabelValues("no_data").Inc()
		return
	}
	m.refreshTotal.WithLabelValues("error").Inc()
}

// ObserveResult updates the price gauges from an analysis pass.
func (m *Metrics) ObserveResult(res *pipeline.Result) {
	if m == nil || res == nil {
		return
	}
	m.refreshTotal.WithLabelValues("ok").Inc()
	if res.Current != nil {
		m.price.WithLabelValues("current").Set(res.Current.ValueIncVAT)
	} else {
		m.price.DeleteLabelValues("current")
	}
	if res.Next != nil {
		m.price.WithLabelValues("next").Set(res.Next.ValueIncVAT)
	} else {
		m.price.DeleteLabelValues("next")
	}
	m.price.WithLabelValues("min").Set(res.Stats.Min)
	m.price.WithLabelValues("max").Set(res.Stats.Max)
	m.price.WithLabelValues("avg").Set(res.Stats.Avg)

	if res.Fallback {
		m.fallback.Set(1)
	} else {
		m.fallback.Set(0)
	}
	if res.Peak.Degenerate() {
		m.peakSlots.Set(0)
	} else {
		m.peakSlots.Set(float64(res.Peak.Len()))
	}
	m.lastRefresh.Set(float64(res.Now.Unix()))
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) PublishFailed(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}
