// Package layout places a technology dependency graph on a grid.
//
// # Overview
//
// The tech tree is drawn as a node-link diagram with a fixed number of rows
// and as many horizontally scrollable columns as the longest prerequisite
// chain needs. [Compute] turns a [techdata.Table] into a [Result]: a
// (column, row) [Slot] and a pixel [Position] for every tech, plus the
// horizontal scroll range for a given viewport.
//
// # Algorithm
//
// Layout runs in four steps:
//
//  1. [Order] produces a topological order by depth-first post-order
//     traversal, starting from every tech in declaration order.
//  2. Pinned starting techs are placed at column 0 in their configured rows.
//  3. [AllocateSlots] walks the order. A tech's column is one past the
//     largest column among its prerequisites; its preferred row is the row of
//     its first prerequisite. If that row is taken the nearest free row is
//     used, searching upwards first at each distance.
//  4. Slots become positions; the scroll range follows from the widest column.
//
// [Classify] then derives one [Connection] per prerequisite edge, styled
// [Direct] when it spans at most one column and [LongRange] otherwise.
//
// # Degradation
//
// Layout never fails. Cycles yield an under-specified order, a full column
// yields overlapping slots (reported in [Result.Overlaps]), and unknown
// prerequisites are ignored. Use techdata.Validate to reject such tables at
// authoring time.
//
// # Determinism
//
// Compute is a pure function of its inputs. Iteration follows the table's
// declaration order, never map order, so repeated calls produce identical
// results.
package layout
