// Package pkg provides the core libraries for techtree.
//
// # Overview
//
// Techtree arranges a research tree, a set of techs that each require other
// techs, into a horizontally scrolling grid: a tech always sits one column to
// the right of its furthest requirement, and rows are chosen to keep chains
// of techs on a line. The pkg directory is organized into these areas:
//
//  1. [techdata] - Tech definitions, table loading (TOML, YAML, JSON) and validation
//  2. [layout] - Column and row assignment, pixel positions and connectors
//  3. [render] - SVG, PNG, DOT and Graphviz output
//  4. [viewport] - Drag and scrollbar state for scrolling the grid
//  5. [research] - Per-save research progress and tech availability
//  6. [save] - Save persistence in SQLite or MongoDB
//  7. [pipeline] - Orchestration (load → layout → render) with caching
//  8. [cache], [observability], [watcher], [errors] - Infrastructure
//
// # Architecture
//
// The typical data flow through techtree:
//
//	Tech table (TOML/YAML/JSON or built-in)
//	         ↓
//	    [techdata] package (parse + validate)
//	         ↓
//	    [layout] package (order → slots → positions → connectors)
//	         ↓
//	    [render] package (scene → SVG/PNG/DOT/Graphviz)
//
// Research progress from a [save] flows into rendering through [research]:
// techs whose requirements are not unlocked are drawn dimmed.
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/techtree/pkg/layout"
//	    "github.com/matzehuels/techtree/pkg/render"
//	    "github.com/matzehuels/techtree/pkg/techdata"
//	)
//
//	t := techdata.Default()
//	res := layout.Compute(t, 1280, 720, layout.DefaultConfig())
//	svg, err := render.Render(ctx, render.FormatSVG, render.NewScene(t, res, nil), render.Options{})
//
// Or run the whole pipeline with caching:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Formats: []string{"svg", "png"}})
package pkg
