package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/techtree/pkg/cache"
	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/observability"
	"github.com/matzehuels/techtree/pkg/render"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// Runner loads, lays out and renders tech tables, consulting Cache for
// layouts and artifacts. The CLI and the HTTP server share one per process;
// it keeps no per-call state and is safe for concurrent use.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// selects cache.DefaultKeyer and a nil logger log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute loads the table, lays it out and renders every format in opts.
// Options are validated up front so a bad format fails before any work.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	result := &Result{}

	loadStart := time.Now()
	t, report, err := r.LoadWithReport(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Table = t
	result.Report = report
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.TechCount = t.Len()
	result.Stats.EdgeCount = len(t.Edges())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layoutStart := time.Now()
	res, layoutHit, err := r.LayoutWithCacheInfo(ctx, t, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Columns = res.Columns()
	result.Stats.Overlaps = len(res.Overlaps)
	result.CacheInfo.LayoutHit = layoutHit

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, t, res, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Info("rendered tech tree", "formats", opts.Formats, "cached", renderHit, "duration", result.Stats.RenderTime)

	return result, nil
}

// LoadWithReport reads the tech table named by opts.Source, or the built-in
// table when it is empty, and validates it. Validation findings are logged
// as warnings and returned; they never fail the load, since the layout
// engine degrades gracefully on malformed graphs.
func (r *Runner) LoadWithReport(ctx context.Context, opts Options) (*techdata.Table, *techdata.Report, error) {
	r.applyLogger(&opts)
	source := opts.Source
	if source == "" {
		source = BuiltinSource
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	var t *techdata.Table
	var err error
	if opts.Source == "" {
		t = techdata.Default()
	} else if t, err = techdata.Load(opts.Source); err != nil {
		err = errors.Wrap(errors.ErrCodeInvalidTechTable, err, "load %s", opts.Source)
	}

	count := 0
	if t != nil {
		count = t.Len()
	}
	hooks.OnLoadComplete(ctx, source, count, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}

	report := techdata.Validate(t)
	for _, u := range report.Unknown {
		opts.Logger.Warn("unknown requirement", "tech", u.Tech, "requires", u.Requires)
	}
	for _, c := range report.Cycles {
		opts.Logger.Warn("requirement cycle", "techs", c)
	}

	opts.Logger.Info("loaded tech table",
		"source", source,
		"techs", t.Len(),
		"edges", len(t.Edges()),
		"duration", time.Since(start))
	return t, report, nil
}

// Load is LoadWithReport without the report.
func (r *Runner) Load(ctx context.Context, opts Options) (*techdata.Table, error) {
	t, _, err := r.LoadWithReport(ctx, opts)
	return t, err
}

// LayoutWithCacheInfo returns the layout of t and whether it came from the
// cache. A cached layout that fails to decode is recomputed.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, t *techdata.Table, opts Options) (layout.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, false, err
	}
	cfg := opts.LayoutConfig(t)
	if err := cfg.Validate(); err != nil {
		return layout.Result{}, false, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout config")
	}

	tableHash, err := cache.HashJSON(t.File())
	if err != nil {
		return layout.Result{}, false, fmt.Errorf("hash tech table: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(tableHash, opts.LayoutKeyOpts(cfg))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached layout.Result
			if json.Unmarshal(data, &cached) == nil {
				return cached, true, nil
			}
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, t.Len())
	start := time.Now()
	res := layout.Compute(t, opts.Width, opts.Height, cfg)
	duration := time.Since(start)
	hooks.OnLayoutComplete(ctx, res.Columns(), len(res.Overlaps), duration, nil)

	if len(res.Overlaps) > 0 {
		opts.Logger.Warn("columns over capacity", "overlaps", res.Overlaps)
	}
	opts.Logger.Info("computed layout",
		"techs", len(res.Slots),
		"columns", res.Columns(),
		"duration", duration)

	if data, err := json.Marshal(res); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.LayoutTTL)
	}
	return res, false, nil
}

// Layout is LayoutWithCacheInfo without the hit flag.
func (r *Runner) Layout(ctx context.Context, t *techdata.Table, opts Options) (layout.Result, error) {
	res, _, err := r.LayoutWithCacheInfo(ctx, t, opts)
	return res, err
}

// RenderWithCacheInfo returns an artifact per format in opts.Formats, and
// whether all of them came from the cache. Missing formats share one scene
// and render concurrently; the first failure cancels the rest.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, t *techdata.Table, res layout.Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	formats, _ := ParseFormats(opts.Formats)

	layoutHash, err := cache.HashJSON(res)
	if err != nil {
		return nil, false, fmt.Errorf("hash layout: %w", err)
	}
	key := func(f render.Format) string {
		return r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(string(f)))
	}

	artifacts := make(map[string][]byte, len(formats))
	var missing []render.Format
	for _, f := range formats {
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key(f)); err == nil && hit {
				artifacts[string(f)] = data
				continue
			}
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, names)
	start := time.Now()

	scene := render.NewScene(t, res, opts.Research)
	ropts := opts.renderOptions()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range missing {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := render.Render(gctx, f, scene, ropts)
			if err != nil {
				return fmt.Errorf("render %s: %w", f, err)
			}
			mu.Lock()
			artifacts[string(f)] = data
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	hooks.OnRenderComplete(ctx, names, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for _, f := range missing {
		_ = r.Cache.Set(ctx, key(f), artifacts[string(f)], cache.ArtifactTTL)
	}
	return artifacts, false, nil
}

// Render is RenderWithCacheInfo without the hit flag.
func (r *Runner) Render(ctx context.Context, t *techdata.Table, res layout.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, t, res, opts)
	return artifacts, err
}

// Close closes the cache.
func (r *Runner) Close() error {
	if r.Cache == nil {
		return nil
	}
	return r.Cache.Close()
}

// applyLogger defaults opts.Logger to the runner's logger.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
