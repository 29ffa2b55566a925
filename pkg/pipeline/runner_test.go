package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/observability"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// memCache is an in-memory cache.Cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if ok {
		c.hits++
	}
	return data, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "techs.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteBuiltin(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Execute(context.Background(), Options{Formats: []string{"svg", "dot"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Stats.TechCount != techdata.Default().Len() {
		t.Errorf("TechCount = %d, want %d", result.Stats.TechCount, techdata.Default().Len())
	}
	if got := result.Layout.Slots["farming_1"]; got != (layout.Slot{Col: 0, Row: 1}) {
		t.Errorf("farming_1 slot = %+v, want {0 1}", got)
	}
	if !result.Report.OK() {
		t.Errorf("builtin table should validate: %v", result.Report.Err())
	}
	for _, f := range []string{"svg", "dot"} {
		if len(result.Artifacts[f]) == 0 {
			t.Errorf("missing %s artifact", f)
		}
	}
	if result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Error("null cache should never hit")
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner(nil, nil, nil).Execute(ctx, Options{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeTable(t, `
[[tech]]
id = "a"
requires = ["b"]

[[tech]]
id = "b"
requires = ["a", "ghost"]
`)
	r := NewRunner(nil, nil, nil)
	table, report, err := r.LoadWithReport(context.Background(), Options{Source: path})
	if err != nil {
		t.Fatalf("LoadWithReport: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
	if len(report.Cycles) != 1 || len(report.Unknown) != 1 {
		t.Errorf("report = %+v, want one cycle and one unknown requirement", report)
	}
}

func TestLoadErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.toml")},
		{"bad extension", writeTable(t, "x") + ".txt"},
		{"duplicate id", writeTable(t, "[[tech]]\nid = \"a\"\n[[tech]]\nid = \"a\"\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Load(context.Background(), Options{Source: tt.path})
			if !errors.Is(err, errors.ErrCodeInvalidTechTable) {
				t.Errorf("got %v, want INVALID_TECH_TABLE", err)
			}
		})
	}
}

func TestLayoutInvalidConfig(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.MaxRows = 0
	_, err := NewRunner(nil, nil, nil).Layout(context.Background(), techdata.Default(), Options{Config: &cfg})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("got %v, want INVALID_CONFIG", err)
	}
}

func TestLayoutCache(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	table := techdata.Default()

	first, hit, err := r.LayoutWithCacheInfo(ctx, table, Options{})
	if err != nil || hit {
		t.Fatalf("first layout: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.LayoutWithCacheInfo(ctx, table, Options{})
	if err != nil || !hit {
		t.Fatalf("second layout: hit=%v err=%v", hit, err)
	}
	if !reflect.DeepEqual(first.Slots, second.Slots) || first.MaxScroll != second.MaxScroll {
		t.Error("cached layout differs from computed layout")
	}

	// A different viewport is a different key.
	if _, hit, _ := r.LayoutWithCacheInfo(ctx, table, Options{Width: 800}); hit {
		t.Error("different viewport should miss")
	}
	// Refresh bypasses the cache.
	if _, hit, _ := r.LayoutWithCacheInfo(ctx, table, Options{Refresh: true}); hit {
		t.Error("refresh should miss")
	}
}

func TestRenderCache(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	table := techdata.Default()
	res, err := r.Layout(ctx, table, Options{})
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{Formats: []string{"svg", "png"}}
	first, hit, err := r.RenderWithCacheInfo(ctx, table, res, opts)
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.RenderWithCacheInfo(ctx, table, res, opts)
	if err != nil || !hit {
		t.Fatalf("second render: hit=%v err=%v", hit, err)
	}
	if string(first["svg"]) != string(second["svg"]) {
		t.Error("cached svg differs")
	}

	state := research.Default(layout.DefaultPinned())
	opts.Research = &state
	third, hit, err := r.RenderWithCacheInfo(ctx, table, res, opts)
	if err != nil || hit {
		t.Fatalf("render with research: hit=%v err=%v", hit, err)
	}
	if string(third["svg"]) == string(first["svg"]) {
		t.Error("research state should change the svg")
	}
}

func TestRenderCacheSeparatesSizing(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newMemCache(), nil, nil)
	table := techdata.Default()
	// Narrow enough that the full tree is wider than the viewport.
	res, err := r.Layout(ctx, table, Options{Width: 400})
	if err != nil {
		t.Fatal(err)
	}
	if res.MaxScroll <= 0 {
		t.Fatalf("MaxScroll = %v, want a scrollable layout", res.MaxScroll)
	}

	base := Options{Formats: []string{"png", "svg"}}
	full, hit, err := r.RenderWithCacheInfo(ctx, table, res, base)
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"scale", Options{Formats: []string{"png"}, Scale: 2}},
		{"viewport", Options{Formats: []string{"svg"}, Viewport: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit, err := r.RenderWithCacheInfo(ctx, table, res, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if hit {
				t.Error("render served from the cache entry of a differently sized render")
			}
			f := tt.opts.Formats[0]
			if string(got[f]) == string(full[f]) {
				t.Errorf("%s output equals the default render", f)
			}
		})
	}
}

func TestRenderLockedTechs(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)
	table := techdata.Default()
	res, _ := r.Layout(ctx, table, Options{})

	state := research.Default(layout.DefaultPinned())
	artifacts, err := r.Render(ctx, table, res, Options{Research: &state})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(artifacts["svg"]), `opacity="0.45"`) {
		t.Error("locked techs should be translucent")
	}
}

// recordingHooks records pipeline events.
type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnLoadStart(context.Context, string) { h.record("load") }
func (h *recordingHooks) OnLayoutStart(context.Context, int)  { h.record("layout") }
func (h *recordingHooks) OnRenderStart(context.Context, []string) {
	h.record("render")
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(func() { observability.SetPipelineHooks(observability.NoopPipelineHooks{}) })

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	want := []string{"load", "layout", "render"}
	if !reflect.DeepEqual(hooks.events, want) {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
