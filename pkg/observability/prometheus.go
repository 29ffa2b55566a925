package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Prometheus Backend
// =============================================================================

// Prometheus implements PipelineHooks, CacheHooks and HTTPHooks with
// Prometheus collectors.
type Prometheus struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec
	TableTechs     prometheus.Gauge
	LayoutColumns  prometheus.Gauge
	LayoutOverlaps prometheus.Gauge

	CacheEvents   *prometheus.CounterVec
	CacheSetBytes *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
	HTTPErrors    *prometheus.CounterVec
}

// NewPrometheus registers the collectors against reg, defaulting to the
// global registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	p := &Prometheus{gatherer: gatherer}
	var err error

	if p.StageDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techtree_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds, labeled by stage.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if p.StageErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techtree_stage_errors_total",
		Help: "Failed pipeline stages, labeled by stage.",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if p.TableTechs, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "techtree_table_techs",
		Help: "Number of techs in the most recently loaded table.",
	})); err != nil {
		return nil, err
	}
	if p.LayoutColumns, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "techtree_layout_columns",
		Help: "Number of columns in the most recent layout.",
	})); err != nil {
		return nil, err
	}
	if p.LayoutOverlaps, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "techtree_layout_overlaps",
		Help: "Techs sharing a cell in the most recent layout because their column was full.",
	})); err != nil {
		return nil, err
	}
	if p.CacheEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techtree_cache_events_total",
		Help: "Cache lookups and writes, labeled by key type and result.",
	}, []string{"key_type", "result"})); err != nil {
		return nil, err
	}
	if p.CacheSetBytes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techtree_cache_set_bytes_total",
		Help: "Bytes written to the cache, labeled by key type.",
	}, []string{"key_type"})); err != nil {
		return nil, err
	}
	if p.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techtree_http_requests_total",
		Help: "Handled API requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"})); err != nil {
		return nil, err
	}
	if p.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techtree_http_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	if p.HTTPErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techtree_http_errors_total",
		Help: "API handler errors, labeled by route and error code.",
	}, []string{"route", "code"})); err != nil {
		return nil, err
	}
	return p, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prometheus) observeStage(stage string, d time.Duration, err error) {
	p.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		p.StageErrors.WithLabelValues(stage).Inc()
	}
}

func (p *Prometheus) OnLoadStart(context.Context, string) {}

func (p *Prometheus) OnLoadComplete(_ context.Context, _ string, techCount int, d time.Duration, err error) {
	p.observeStage("load", d, err)
	if err == nil {
		p.TableTechs.Set(float64(techCount))
	}
}

func (p *Prometheus) OnLayoutStart(context.Context, int) {}

func (p *Prometheus) OnLayoutComplete(_ context.Context, columns, overlaps int, d time.Duration, err error) {
	p.observeStage("layout", d, err)
	if err == nil {
		p.LayoutColumns.Set(float64(columns))
		p.LayoutOverlaps.Set(float64(overlaps))
	}
}

func (p *Prometheus) OnRenderStart(context.Context, []string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	p.observeStage("render", d, err)
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheEvents.WithLabelValues(keyType, "set").Inc()
	p.CacheSetBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	route = normalizeRoute(route)
	p.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	p.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, route, code string, _ error) {
	if code == "" {
		code = "UNKNOWN"
	}
	p.HTTPErrors.WithLabelValues(normalizeRoute(route), code).Inc()
}

// normalizeRoute keeps label cardinality bounded when no router pattern
// was matched.
func normalizeRoute(route string) string {
	if route == "" || !strings.HasPrefix(route, "/") {
		return "unmatched"
	}
	return route
}

// register adds c to reg, returning the already registered collector of
// the same type if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			var zero C
			return zero, fmt.Errorf("collector already registered with incompatible type: %v", err)
		}
		return existing, nil
	}
	return c, nil
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
