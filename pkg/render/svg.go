package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/viewport"
)

const svgStyle = `
.tech rect { stroke-width: 2; }
.tech:hover rect { stroke-width: 3; }
.tech text { font-family: sans-serif; pointer-events: none; }
`

// WriteSVG renders s as an SVG document.
//
// Connectors are drawn first, solid for direct edges and dashed for
// long-range ones, then the nodes. Techs that cannot be researched are drawn
// at the locked opacity. With opts.Viewport the content is translated by the
// scroll offset and the scrollbar is drawn on top.
func WriteSVG(w io.Writer, s Scene, opts Options) error {
	if s.Table == nil {
		return fmt.Errorf("render: scene has no tech table")
	}
	opts = opts.withDefaults()
	th := opts.Theme
	width, height := s.Size(opts)

	cw := &countingWriter{w: w}
	canvas := svg.New(cw)
	canvas.Start(px(width), px(height))
	canvas.Style("text/css", svgStyle)
	canvas.Rect(0, 0, px(width), px(height), "fill:"+css(th.Background))

	canvas.Gtransform(fmt.Sprintf("translate(%d,0)", -px(s.offset(opts))))
	canvas.Gid("connections")
	for _, c := range s.Connections {
		svgConnection(canvas, c, th)
	}
	canvas.Gend()

	canvas.Gid("techs")
	cfg := s.Layout.Config
	for _, n := range s.nodes() {
		svgNode(canvas, n, nodeBox(n.Pos, cfg), th)
	}
	canvas.Gend()
	canvas.Gend()

	if opts.Viewport {
		svgScrollbar(canvas, s, opts)
	}
	canvas.End()
	return cw.err
}

func svgConnection(canvas *svg.SVG, c layout.Connection, th Theme) {
	stroke := fmt.Sprintf("stroke:%s;stroke-width:2", css(th.Connector))
	if c.Style == layout.LongRange {
		canvas.Line(px(c.Start.X), px(c.Start.Y), px(c.End.X), px(c.End.Y),
			fmt.Sprintf("%s;stroke-opacity:%.2f", stroke, LongRangeOpacity),
			fmt.Sprintf(`stroke-dasharray="%g,%g"`, DashLength, DashGap),
			fmt.Sprintf(`data-from="%s"`, c.From), fmt.Sprintf(`data-to="%s"`, c.To))
		return
	}
	canvas.Line(px(c.Start.X), px(c.Start.Y), px(c.End.X), px(c.End.Y),
		fmt.Sprintf("%s;stroke-opacity:%.2f", stroke, DirectOpacity),
		fmt.Sprintf(`data-from="%s"`, c.From), fmt.Sprintf(`data-to="%s"`, c.To))
}

func svgNode(canvas *svg.SVG, n placed, b box, th Theme) {
	attrs := []string{
		`class="tech"`,
		fmt.Sprintf(`id="tech-%s"`, n.Tech.ID),
		fmt.Sprintf(`data-status="%s"`, n.Status),
		fmt.Sprintf(`data-icon="%s"`, n.Tech.IconKey()),
	}
	if n.Opacity < 1 {
		attrs = append(attrs, fmt.Sprintf(`opacity="%.2f"`, n.Opacity))
	}
	canvas.Group(attrs...)
	if n.Tech.Info != "" {
		canvas.Title(n.Tech.Info)
	}
	canvas.Roundrect(px(b.X), px(b.Y), px(b.W), px(b.H), 10, 10,
		fmt.Sprintf("fill:%s;stroke:%s", css(th.Fill(n.Tech.Color)), css(th.Stroke(n.Status))))
	canvas.Circle(px(b.IconX), px(b.LabelY), px(b.IconR), "fill:"+css(th.Icon(n.Tech.Color)))
	canvas.Text(px(b.IconX), px(b.LabelY)+5, initial(n.Tech.DisplayName()),
		fmt.Sprintf("fill:%s;font-size:14px;font-weight:bold;text-anchor:middle", css(th.Text)))
	canvas.Text(px(b.LabelX), px(b.LabelY)+6, truncate(n.Tech.DisplayName(), b.LabelMax),
		fmt.Sprintf("fill:%s;font-size:16px;font-weight:bold;text-anchor:middle", css(th.Text)))
	canvas.Gend()
}

func svgScrollbar(canvas *svg.SVG, s Scene, opts Options) {
	sb := viewport.NewScrollbar(s.Layout.ViewportWidth, s.Layout.ViewportHeight)
	maxOffset := s.Layout.MaxScroll
	if !sb.Visible(maxOffset) {
		return
	}
	th := opts.Theme
	canvas.Gid("scrollbar")
	canvas.Rect(px(sb.BarX()), px(sb.BarY()), px(sb.BarWidth()), px(sb.Height), "fill:"+css(th.Bar))
	canvas.Rect(px(sb.HandleX(s.offset(opts), maxOffset)), px(sb.BarY()), px(sb.HandleWidth(maxOffset)), px(sb.Height),
		"fill:"+css(th.Handle))
	canvas.Gend()
}

func px(v float64) int { return int(math.Round(v)) }

func initial(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return ""
}

// countingWriter records the first write error; svgo ignores them.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
