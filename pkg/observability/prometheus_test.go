package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestPrometheus(t *testing.T) (*Prometheus, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}
	return p, reg
}

func TestPrometheusPipeline(t *testing.T) {
	p, _ := newTestPrometheus(t)
	ctx := context.Background()

	p.OnLoadComplete(ctx, "techs.toml", 19, time.Millisecond, nil)
	p.OnLayoutComplete(ctx, 7, 1, time.Millisecond, nil)
	p.OnLayoutComplete(ctx, 99, 99, time.Millisecond, errors.New("canceled"))

	if got := testutil.ToFloat64(p.TableTechs); got != 19 {
		t.Errorf("techtree_table_techs = %v, want 19", got)
	}
	if got := testutil.ToFloat64(p.LayoutColumns); got != 7 {
		t.Errorf("techtree_layout_columns = %v, want 7 (failed layouts ignored)", got)
	}
	if got := testutil.ToFloat64(p.LayoutOverlaps); got != 1 {
		t.Errorf("techtree_layout_overlaps = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.StageErrors.WithLabelValues("layout")); got != 1 {
		t.Errorf("layout errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.StageDurations); got != 2 {
		t.Errorf("stage duration series = %d, want 2", got)
	}
}

func TestPrometheusCache(t *testing.T) {
	p, _ := newTestPrometheus(t)
	ctx := context.Background()

	p.OnCacheMiss(ctx, "layout")
	p.OnCacheSet(ctx, "layout", 512)
	p.OnCacheHit(ctx, "layout")
	p.OnCacheHit(ctx, "layout")

	tests := []struct {
		result string
		want   float64
	}{
		{"hit", 2}, {"miss", 1}, {"set", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(p.CacheEvents.WithLabelValues("layout", tt.result)); got != tt.want {
			t.Errorf("cache %s = %v, want %v", tt.result, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(p.CacheSetBytes.WithLabelValues("layout")); got != 512 {
		t.Errorf("cache bytes = %v", got)
	}
}

func TestPrometheusHTTP(t *testing.T) {
	p, _ := newTestPrometheus(t)
	ctx := context.Background()

	p.OnResponse(ctx, "GET", "/api/saves/{id}", 404, 3*time.Millisecond)
	p.OnResponse(ctx, "GET", "", 404, time.Millisecond)
	p.OnError(ctx, "GET", "/api/saves/{id}", "SAVE_NOT_FOUND", errors.New("missing"))

	if got := testutil.ToFloat64(p.HTTPRequests.WithLabelValues("GET", "/api/saves/{id}", "404")); got != 1 {
		t.Errorf("requests = %v", got)
	}
	if got := testutil.ToFloat64(p.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v", got)
	}
	if got := testutil.ToFloat64(p.HTTPErrors.WithLabelValues("/api/saves/{id}", "SAVE_NOT_FOUND")); got != 1 {
		t.Errorf("errors = %v", got)
	}
}

func TestPrometheusReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPrometheus(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("second NewPrometheus: %v", err)
	}
	a.OnCacheHit(context.Background(), "layout")
	if got := testutil.ToFloat64(b.CacheEvents.WithLabelValues("layout", "hit")); got != 1 {
		t.Errorf("collectors not shared: %v", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	p, _ := newTestPrometheus(t)
	p.OnCacheHit(context.Background(), "artifact")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `techtree_cache_events_total{key_type="artifact",result="hit"} 1`) {
		t.Errorf("metrics output missing cache counter:\n%s", body)
	}
}
