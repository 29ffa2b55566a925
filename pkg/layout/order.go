package layout

import "github.com/matzehuels/techtree/pkg/techdata"

// Order returns the tech IDs of t in topological order: every tech appears
// after all of its known prerequisites.
//
// Order runs a depth-first post-order traversal, starting from each tech in
// declaration order and visiting prerequisites in requirement order. Among
// valid orders it therefore picks the one closest to declaration order.
//
// A tech is marked visited on entry, so a cycle cannot recurse forever; the
// tech that closes the cycle is emitted before one of its prerequisites.
// Unknown prerequisite IDs are walked through but never emitted.
func Order(t *techdata.Table) []string {
	visited := make(map[string]bool, t.Len())
	order := make([]string, 0, t.Len())

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, req := range t.Requires(id) {
			visit(req)
		}
		if t.Has(id) {
			order = append(order, id)
		}
	}

	for i := range t.Len() {
		visit(t.At(i).ID)
	}
	return order
}
