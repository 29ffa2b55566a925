// Package techdata defines technology tables: the static, immutable input of
// the tech-tree layout engine.
//
// # Overview
//
// A [Table] is an explicitly ordered sequence of [Tech] definitions. Each tech
// names the technologies it requires; together these requirements form a
// directed acyclic graph. Declaration order is part of the contract: every
// traversal over a table (layout ordering, edge enumeration, rendering) follows
// it, so two loads of the same file always produce the same layout.
//
// # Loading
//
// Tables are loaded from TOML, YAML, or JSON with [Load] or [Decode]. The
// format is inferred from the file extension:
//
//	t, err := techdata.Load("techs.toml")
//
// A file may carry a layout section overriding pinned starting rows and
// spacing constants; see [Settings].
//
// [Default] returns the embedded reference table.
//
// # Validation
//
// Loading only enforces structural rules (non-empty, unique IDs). Graph rules
// are checked separately by [Validate], which reports unknown requirements and
// dependency cycles. The layout engine tolerates both, so validation is an
// authoring-time tool rather than a precondition.
package techdata
