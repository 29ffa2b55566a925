package render

import (
	"bytes"
	"fmt"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/viewport"
)

// PNG rasterizes s. It draws the same scene as [WriteSVG], at opts.Scale
// times the layout resolution.
func PNG(s Scene, opts Options) ([]byte, error) {
	if s.Table == nil {
		return nil, fmt.Errorf("render: scene has no tech table")
	}
	opts = opts.withDefaults()
	th := opts.Theme
	width, height := s.Size(opts)

	dc := gg.NewContext(px(width*opts.Scale), px(height*opts.Scale))
	dc.Scale(opts.Scale, opts.Scale)
	dc.SetColor(th.Background)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.Push()
	dc.Translate(-s.offset(opts), 0)
	dc.SetLineWidth(2)
	for _, c := range s.Connections {
		if c.Style == layout.LongRange {
			dc.SetColor(withAlpha(th.Connector, LongRangeOpacity))
			dc.SetDash(DashLength, DashGap)
		} else {
			dc.SetColor(withAlpha(th.Connector, DirectOpacity))
			dc.SetDash()
		}
		dc.DrawLine(c.Start.X, c.Start.Y, c.End.X, c.End.Y)
		dc.Stroke()
	}
	dc.SetDash()

	cfg := s.Layout.Config
	for _, n := range s.nodes() {
		pngNode(dc, n, nodeBox(n.Pos, cfg), th)
	}
	dc.Pop()

	if opts.Viewport {
		pngScrollbar(dc, s, opts)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// pngNode folds the node opacity into every color; gg has no group alpha.
func pngNode(dc *gg.Context, n placed, b box, th Theme) {
	dc.SetColor(withAlpha(th.Fill(n.Tech.Color), n.Opacity))
	dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 10)
	dc.Fill()
	dc.SetColor(withAlpha(th.Stroke(n.Status), n.Opacity))
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 10)
	dc.Stroke()

	dc.SetColor(withAlpha(th.Icon(n.Tech.Color), n.Opacity))
	dc.DrawCircle(b.IconX, b.LabelY, b.IconR)
	dc.Fill()

	dc.SetColor(withAlpha(th.Text, n.Opacity))
	dc.DrawStringAnchored(initial(n.Tech.DisplayName()), b.IconX, b.LabelY, 0.5, 0.5)
	dc.DrawStringAnchored(truncate(n.Tech.DisplayName(), b.LabelMax), b.LabelX, b.LabelY, 0.5, 0.5)
}

func pngScrollbar(dc *gg.Context, s Scene, opts Options) {
	sb := viewport.NewScrollbar(s.Layout.ViewportWidth, s.Layout.ViewportHeight)
	maxOffset := s.Layout.MaxScroll
	if !sb.Visible(maxOffset) {
		return
	}
	dc.SetColor(opts.Theme.Bar)
	dc.DrawRectangle(sb.BarX(), sb.BarY(), sb.BarWidth(), sb.Height)
	dc.Fill()
	dc.SetColor(opts.Theme.Handle)
	dc.DrawRectangle(sb.HandleX(s.offset(opts), maxOffset), sb.BarY(), sb.HandleWidth(maxOffset), sb.Height)
	dc.Fill()
}
