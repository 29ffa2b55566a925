package render

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// Format is an output format.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatDOT      Format = "dot"
	FormatGraphviz Format = "graphviz"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT, FormatGraphviz}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want svg, png, dot or graphviz)", s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatGraphviz {
		return ".gv.svg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG, FormatGraphviz:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "text/vnd.graphviz; charset=utf-8"
	}
}

// Connector opacities.
const (
	DirectOpacity    = 0.8
	LongRangeOpacity = 0.5
	DashLength       = 8.0
	DashGap          = 6.0
)

// Scene is everything a renderer draws.
type Scene struct {
	Table       *techdata.Table
	Layout      layout.Result
	Connections []layout.Connection

	// Research is the state techs are drawn against. Nil draws every tech
	// as researchable.
	Research *research.State
}

// NewScene classifies the connections of r and bundles them with the
// table and research state.
func NewScene(t *techdata.Table, r layout.Result, state *research.State) Scene {
	return Scene{
		Table:       t,
		Layout:      r,
		Connections: layout.Classify(t, r),
		Research:    state,
	}
}

// Opacity returns the opacity tech is drawn at.
func (s Scene) Opacity(tech techdata.Tech) float64 {
	if s.Research == nil {
		return 1
	}
	return s.Research.Opacity(tech)
}

// nodes returns the placed techs in declaration order.
func (s Scene) nodes() []placed {
	var out []placed
	for _, tech := range s.Table.Techs() {
		p, ok := s.Layout.Positions[tech.ID]
		if !ok {
			continue
		}
		out = append(out, placed{Tech: tech, Pos: p, Opacity: s.Opacity(tech), Status: s.Status(tech)})
	}
	return out
}

type placed struct {
	Tech    techdata.Tech
	Pos     layout.Position
	Opacity float64
	Status  research.Status
}

// Status returns the research status of tech. Without a research state every
// tech is available.
func (s Scene) Status(tech techdata.Tech) research.Status {
	if s.Research == nil {
		return research.Available
	}
	return s.Research.Status(tech)
}

// Options configures a render.
type Options struct {
	// Viewport crops the output to the layout's viewport, scrolled to
	// Offset, and draws the scrollbar. Otherwise the whole scroll extent is
	// drawn.
	Viewport bool
	Offset   float64

	// Scale multiplies the PNG resolution. Zero means 1.
	Scale float64

	Theme Theme
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Theme.Fills == nil {
		o.Theme = DefaultTheme()
	}
	return o
}

// Size returns the output size in pixels before scaling.
func (s Scene) Size(opts Options) (w, h float64) {
	r := s.Layout
	if opts.Viewport {
		return r.ViewportWidth, r.ViewportHeight
	}
	return r.ViewportWidth + r.MaxScroll, r.ViewportHeight
}

// offset returns the clamped horizontal translation for opts.
func (s Scene) offset(opts Options) float64 {
	if !opts.Viewport {
		return 0
	}
	return min(max(opts.Offset, 0), s.Layout.MaxScroll)
}

// Render renders s in format f.
func Render(ctx context.Context, f Format, s Scene, opts Options) ([]byte, error) {
	var sb strings.Builder
	switch f {
	case FormatSVG:
		if err := WriteSVG(&sb, s, opts); err != nil {
			return nil, err
		}
		return []byte(sb.String()), nil
	case FormatPNG:
		return PNG(s, opts)
	case FormatDOT:
		return []byte(ToDOT(s, opts)), nil
	case FormatGraphviz:
		return GraphvizSVG(ctx, ToDOT(s, opts))
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// =============================================================================
// Theme
// =============================================================================

// Theme holds the colors of a render.
type Theme struct {
	Background  color.RGBA
	Text        color.RGBA
	Connector   color.RGBA
	NodeStroke  color.RGBA
	Bar         color.RGBA
	Handle      color.RGBA
	Unlocked    color.RGBA // node outline once researched
	Researching color.RGBA // node outline while researching
	Fills       map[techdata.Style]color.RGBA
}

// DefaultTheme is a dark theme matching the in-game tech screen.
func DefaultTheme() Theme {
	return Theme{
		Background:  color.RGBA{0x1a, 0x1a, 0x1a, 0xff},
		Text:        color.RGBA{0xff, 0xff, 0xff, 0xff},
		Connector:   color.RGBA{0xff, 0xff, 0xff, 0xff},
		NodeStroke:  color.RGBA{0x44, 0x44, 0x44, 0xff},
		Bar:         color.RGBA{0x44, 0x44, 0x44, 0xff},
		Handle:      color.RGBA{0xaa, 0xaa, 0xaa, 0xff},
		Unlocked:    color.RGBA{0xe8, 0xc5, 0x47, 0xff},
		Researching: color.RGBA{0x6f, 0xc3, 0xff, 0xff},
		Fills: map[techdata.Style]color.RGBA{
			techdata.StyleNone:   {0x4a, 0x4f, 0x57, 0xff},
			techdata.StyleGreen:  {0x3d, 0x7a, 0x45, 0xff},
			techdata.StyleBlue:   {0x2f, 0x5d, 0x8c, 0xff},
			techdata.StyleRed:    {0x8c, 0x33, 0x33, 0xff},
			techdata.StyleYellow: {0x9a, 0x7b, 0x22, 0xff},
			techdata.StylePurple: {0x6a, 0x3d, 0x8a, 0xff},
		},
	}
}

// Fill returns the node color for style, falling back to StyleNone.
func (t Theme) Fill(style techdata.Style) color.RGBA {
	if c, ok := t.Fills[style]; ok {
		return c
	}
	return t.Fills[techdata.StyleNone]
}

// Stroke returns the node outline color for status.
func (t Theme) Stroke(status research.Status) color.RGBA {
	switch status {
	case research.Unlocked:
		return t.Unlocked
	case research.Researching:
		return t.Researching
	default:
		return t.NodeStroke
	}
}

// Icon returns the darker icon-disc color for style.
func (t Theme) Icon(style techdata.Style) color.RGBA {
	c := t.Fill(style)
	return color.RGBA{c.R / 2, c.G / 2, c.B / 2, c.A}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// withAlpha scales the alpha of c by a.
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{c.R, c.G, c.B, uint8(float64(c.A)*a + 0.5)}
}

// =============================================================================
// Node geometry
// =============================================================================

// box is the pixel geometry of a node.
type box struct {
	X, Y, W, H     float64 // top-left corner and size
	IconX, IconR   float64 // icon disc centre and radius
	LabelX, LabelY float64 // label centre
	LabelMax       int     // label rune budget
}

func nodeBox(p layout.Position, cfg layout.Config) box {
	w, h := cfg.NodeWidth, cfg.NodeHeight
	left := p.X - w/2
	return box{
		X: left, Y: p.Y - h/2, W: w, H: h,
		IconX:    left + h/2,
		IconR:    h * 0.35,
		LabelX:   left + h + (w-h)/2,
		LabelY:   p.Y,
		LabelMax: max(4, int((w-h*1.4)/8)),
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
