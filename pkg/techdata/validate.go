package techdata

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	// ErrUnknownRequirement is reported by [Validate] when a tech requires an
	// ID that is not defined in the table.
	ErrUnknownRequirement = errors.New("unknown requirement")

	// ErrCycle is reported by [Validate] when requirements form a cycle.
	ErrCycle = errors.New("requirement cycle")
)

// UnknownRequirement names a requirement that does not resolve.
type UnknownRequirement struct {
	Tech     string
	Requires string
}

// Report is the result of [Validate].
type Report struct {
	// Unknown lists requirements naming undefined techs, in declaration order.
	Unknown []UnknownRequirement
	// Cycles lists each strongly connected set of techs that cannot be
	// ordered, members in declaration order. Self-requirements appear as
	// single-element cycles.
	Cycles [][]string
}

// OK reports whether the table is a well-formed DAG with resolvable requirements.
func (r *Report) OK() bool { return len(r.Unknown) == 0 && len(r.Cycles) == 0 }

// Err joins every finding into one error, or returns nil when the report is OK.
// Individual findings wrap ErrUnknownRequirement or ErrCycle.
func (r *Report) Err() error {
	var errs []error
	for _, u := range r.Unknown {
		errs = append(errs, fmt.Errorf("%w: %s requires %s", ErrUnknownRequirement, u.Tech, u.Requires))
	}
	for _, c := range r.Cycles {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCycle, strings.Join(c, " -> ")))
	}
	return errors.Join(errs...)
}

// Validate checks that every requirement resolves and that requirements are
// acyclic. Cycle detection uses gonum's topological sort over the known
// edges.
func Validate(t *Table) *Report {
	report := &Report{}
	g := simple.NewDirectedGraph()
	for i := range t.techs {
		g.AddNode(simple.Node(int64(i)))
	}

	for i, tech := range t.techs {
		for _, req := range tech.Requires {
			j, ok := t.index[req]
			switch {
			case !ok:
				report.Unknown = append(report.Unknown, UnknownRequirement{Tech: tech.ID, Requires: req})
			case j == i:
				report.Cycles = append(report.Cycles, []string{tech.ID})
			default:
				g.SetEdge(g.NewEdge(simple.Node(int64(j)), simple.Node(int64(i))))
			}
		}
	}

	if _, err := topo.Sort(g); err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			for _, component := range unorderable {
				report.Cycles = append(report.Cycles, t.componentIDs(component))
			}
		}
	}
	slices.SortStableFunc(report.Cycles, func(a, b []string) int {
		return t.index[a[0]] - t.index[b[0]]
	})
	return report
}

func (t *Table) componentIDs(nodes []graph.Node) []string {
	idx := make([]int, len(nodes))
	for i, n := range nodes {
		idx[i] = int(n.ID())
	}
	slices.Sort(idx)
	ids := make([]string, len(idx))
	for i, j := range idx {
		ids[i] = t.techs[j].ID
	}
	return ids
}
