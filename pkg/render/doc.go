// Package render draws computed tech tree layouts.
//
// # Overview
//
// A [Scene] bundles a tech table, its [layout.Result], the classified
// connectors and an optional research state. Renderers only read the scene;
// they never move a node.
//
//	r := layout.Compute(table, 1280, 720, cfg)
//	scene := render.NewScene(table, r, &state)
//	err := render.WriteSVG(w, scene, render.Options{})
//
// # Formats
//
//   - [FormatSVG]: vector output via svgo, with hover styling and data
//     attributes for each tech
//   - [FormatPNG]: raster output via gg
//   - [FormatDOT]: Graphviz source with pinned node positions
//   - [FormatGraphviz]: the DOT source rendered to SVG by neato
//
// # Drawing Rules
//
// Connectors run from the right edge of a prerequisite to the left edge of
// its dependent. Direct connectors are solid at [DirectOpacity]; long-range
// ones are dashed ([DashLength] on, [DashGap] off) at [LongRangeOpacity].
// Techs whose requirements are not all unlocked are drawn at
// [research.LockedOpacity].
//
// With [Options.Viewport] the output is cropped to the viewport, scrolled to
// [Options.Offset], and the scrollbar is drawn along the bottom edge.
package render
