// Package viewport models horizontal scrolling of a laid-out tech tree.
//
// The layout engine in package layout is pure: it computes where every node
// goes and how far the content may scroll. This package owns the mutable
// part, the current scroll offset, and turns pointer and keyboard input into
// offset changes that never leave [0, MaxOffset].
//
// # Pointer Gestures
//
// A [Model] is either [Idle] or [Dragging]. PointerDown anchors a gesture;
// PointerMove only scrolls once the pointer has travelled more than
// [DragThreshold] pixels, so a short press-release is reported as a click by
// PointerUp:
//
//	m := viewport.New(r.MaxScroll)
//	m.PointerDown(400)
//	m.PointerMove(250)   // content follows the pointer: offset 150
//	rel := m.PointerUp() // rel.Click == false
//
// # Scrollbar
//
// [Scrollbar] maps offsets to the horizontal position of a scrollbar handle
// drawn along the bottom of the viewport, and back.
//
// The package has no timers and starts no goroutines; renderers call it from
// their event loop.
package viewport
