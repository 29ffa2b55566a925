package layout

import (
	"slices"

	"github.com/matzehuels/techtree/pkg/techdata"
)

// Slot is a grid cell: Col counts from 0, Row from 1 to Config.MaxRows.
type Slot struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Position is the pixel centre of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AllocateSlots assigns a slot to every tech in order.
//
// Pinned techs present in t are placed first, at column 0 in their
// configured rows. Every other tech goes one column past its deepest placed
// prerequisite and prefers the row of its first declared prerequisite.
// Prerequisites that are unknown, or not yet placed because of a cycle, do
// not count: a first prerequisite without a slot leaves the preference at
// cfg.DefaultRow, and a tech with no placed prerequisite at all is a root
// in column 0 even when it names unknown ones.
//
// When every row of a column is taken the tech keeps its preferred row and
// shares the cell; such IDs are returned as overlaps, in placement order.
func AllocateSlots(t *techdata.Table, order []string, cfg Config) (map[string]Slot, []string) {
	slots := make(map[string]Slot, t.Len())
	occupied := make(map[Slot]bool, t.Len())
	var overlaps []string

	place := func(id string, s Slot) {
		if occupied[s] {
			overlaps = append(overlaps, id)
		}
		occupied[s] = true
		slots[id] = s
	}

	for _, id := range pinnedInOrder(t, cfg.Pinned) {
		place(id, Slot{Col: 0, Row: cfg.Pinned[id]})
	}

	for _, id := range order {
		if _, done := slots[id]; done {
			continue
		}

		reqs := t.Requires(id)
		col, preferred := 0, cfg.DefaultRow
		if len(reqs) > 0 {
			if s, ok := slots[reqs[0]]; ok {
				preferred = s.Row
			}
		}
		for _, req := range reqs {
			if s, ok := slots[req]; ok && s.Col+1 > col {
				col = s.Col + 1
			}
		}

		row, _ := findNearestFreeRow(occupied, col, preferred, cfg.MaxRows)
		place(id, Slot{Col: col, Row: row})
	}
	return slots, overlaps
}

// pinnedInOrder returns the pinned IDs defined in t, in declaration order.
func pinnedInOrder(t *techdata.Table, pinned map[string]int) []string {
	ids := make([]string, 0, len(pinned))
	for id := range pinned {
		if t.Has(id) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		return t.Index(a) - t.Index(b)
	})
	return ids
}

// findNearestFreeRow returns the free row of col closest to preferred.
// At each distance d the row above (preferred-d) is tried before the row
// below (preferred+d); rows outside [1, maxRows] are skipped. If the column
// is full it returns preferred and false.
func findNearestFreeRow(occupied map[Slot]bool, col, preferred, maxRows int) (int, bool) {
	free := func(row int) bool {
		return row >= 1 && row <= maxRows && !occupied[Slot{Col: col, Row: row}]
	}
	if free(preferred) {
		return preferred, true
	}
	for d := 1; d <= maxRows; d++ {
		if free(preferred - d) {
			return preferred - d, true
		}
		if free(preferred + d) {
			return preferred + d, true
		}
	}
	return preferred, false
}
