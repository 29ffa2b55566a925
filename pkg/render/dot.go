package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/techtree/pkg/layout"
)

// ToDOT converts s to Graphviz DOT with every node pinned at its layout
// position. The result can be rendered with [GraphvizSVG] or any neato
// compatible tool.
//
// Graphviz puts the origin bottom-left, so y is flipped against the scene
// height. Long-range connectors are dashed and locked techs get a translucent
// fill.
func ToDOT(s Scene, opts Options) string {
	opts = opts.withDefaults()
	th := opts.Theme
	_, height := s.Size(opts)
	cfg := s.Layout.Config

	var buf bytes.Buffer
	buf.WriteString("digraph techtree {\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", css(th.Background))
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=line;\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fixedsize=true, width=%.3f, height=%.3f, fontcolor=%q, fontsize=14, fontname=\"Helvetica-Bold\"];\n",
		cfg.NodeWidth/72, cfg.NodeHeight/72, css(th.Text))
	fmt.Fprintf(&buf, "  edge [color=%q, arrowhead=none, penwidth=2];\n", css(th.Connector))
	buf.WriteString("\n")

	for _, n := range s.nodes() {
		attrs := []string{
			fmt.Sprintf("label=%q", n.Tech.DisplayName()),
			fmt.Sprintf("pos=\"%.1f,%.1f!\"", n.Pos.X, height-n.Pos.Y),
			fmt.Sprintf("fillcolor=%q", dotColor(th.Fill(n.Tech.Color), n.Opacity)),
			fmt.Sprintf("color=%q", css(th.Stroke(n.Status))),
		}
		if n.Tech.Info != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=%q", n.Tech.Info))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Tech.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range s.Connections {
		if c.Style == layout.LongRange {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=%q];\n", c.From, c.To,
				dotColor(th.Connector, LongRangeOpacity))
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [color=%q];\n", c.From, c.To, dotColor(th.Connector, DirectOpacity))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotColor(c color.RGBA, alpha float64) string {
	if alpha >= 1 {
		return css(c)
	}
	return fmt.Sprintf("%s%02x", css(c), uint8(alpha*255+0.5))
}

// GraphvizSVG renders a DOT graph to SVG with the neato engine, which keeps
// pinned positions.
func GraphvizSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one whose pixel
// size matches its view box.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
