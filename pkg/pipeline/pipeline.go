// Package pipeline turns a tech table into rendered tech trees.
//
// A run has three stages. Load reads a TOML, YAML or JSON table (or the
// built-in one) and reports unknown requirements and cycles. Layout places
// every tech on the column grid for a viewport size. Render draws the grid
// in each requested format. The CLI, the terminal viewer and the HTTP API
// all go through [Runner], so the same cache keys, validation and
// [observability] hooks apply everywhere.
//
//	runner := pipeline.NewRunner(fileCache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "techs.toml",
//	    Formats: []string{"svg", "png"},
//	})
//
// Callers that need one stage call [Runner.Load], [Runner.Layout] or
// [Runner.Render] directly; the viewer lays out once and renders per frame.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/techtree/pkg/cache"
	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/render"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/techdata"
)

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 1280.0

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 720.0

	// DefaultFormat is the default output format.
	DefaultFormat = string(render.FormatSVG)

	// BuiltinSource names the embedded default tech table in logs and hooks.
	BuiltinSource = "builtin"
)

// Options configures a run. The HTTP API decodes it from request bodies.
type Options struct {
	Source string `json:"source,omitempty"` // tech table path, empty for the built-in table

	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Config *layout.Config `json:"config,omitempty"` // nil: defaults overlaid with the table's layout section

	Formats  []string        `json:"formats,omitempty"`
	Research *research.State `json:"research,omitempty"` // nil draws every tech researchable
	Viewport bool            `json:"viewport,omitempty"`
	Offset   float64         `json:"offset,omitempty"`
	Scale    float64         `json:"scale,omitempty"`

	// Refresh bypasses cached layouts and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result is everything Execute produced. Artifacts is keyed by format name.
type Result struct {
	Table     *techdata.Table
	Layout    layout.Result
	Report    *techdata.Report
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats sizes and times a run.
type Stats struct {
	TechCount  int
	EdgeCount  int
	Columns    int
	Overlaps   int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo reports which stages were served from the cache. RenderHit is
// set only when every format was.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// quiet is the logger of runs that were given none.
var quiet = log.NewWithOptions(io.Discard, log.Options{})

// SetLayoutDefaults fills a zero viewport with the default size.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = quiet
	}
}

// ValidateForLayout sets layout defaults and checks the viewport.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "viewport must be positive, got %vx%v", o.Width, o.Height)
	}
	return nil
}

// SetRenderDefaults selects SVG at scale 1 when unset.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Logger == nil {
		o.Logger = quiet
	}
}

// ValidateForRender sets render defaults and checks every format.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %v", o.Scale)
	}
	_, err := ParseFormats(o.Formats)
	return err
}

// ParseFormats parses format names, rejecting unknown ones.
func ParseFormats(names []string) ([]render.Format, error) {
	formats := make([]render.Format, 0, len(names))
	for _, name := range names {
		f, err := render.ParseFormat(name)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "%v", err)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// LayoutConfig returns the layout configuration for t: o.Config when set,
// otherwise the defaults overlaid with the table's layout section.
func (o *Options) LayoutConfig(t *techdata.Table) layout.Config {
	if o.Config != nil {
		return *o.Config
	}
	return layout.DefaultConfig().WithSettings(t.Settings())
}

// LayoutKeyOpts is everything besides the table that a layout depends on.
func (o *Options) LayoutKeyOpts(cfg layout.Config) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{Width: o.Width, Height: o.Height, Config: cfg}
}

// ArtifactKeyOpts is everything besides the layout that an artifact depends
// on: format, research state, viewport sizing and scale. The scroll offset
// only matters for viewport renders.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format, Viewport: o.Viewport, Scale: o.Scale}
	if o.Research != nil {
		opts.ResearchHash, _ = cache.HashJSON(o.Research)
	}
	if o.Viewport {
		opts.Offset = o.Offset
	}
	return opts
}

// renderOptions converts o to renderer options.
func (o *Options) renderOptions() render.Options {
	return render.Options{
		Viewport: o.Viewport,
		Offset:   o.Offset,
		Scale:    o.Scale,
	}
}
