package layout

import "github.com/matzehuels/techtree/pkg/techdata"

// Result is a computed tech tree layout. It is a derived value: recompute it
// whenever the table, the viewport or the configuration changes.
type Result struct {
	// Config is the configuration the layout was computed with.
	Config Config

	// ViewportWidth and ViewportHeight are the viewport the layout targets.
	ViewportWidth  float64
	ViewportHeight float64

	// Order is the topological order slots were allocated in.
	Order []string

	// Slots and Positions hold one entry per placed tech.
	Slots     map[string]Slot
	Positions map[string]Position

	// MaxCol is the largest column in use, or -1 for an empty layout.
	MaxCol int

	// RowSpacing is the vertical distance between row centres.
	RowSpacing float64

	// MaxScroll is the largest valid horizontal scroll offset.
	MaxScroll float64

	// Overlaps lists techs placed on an already occupied cell because their
	// column had no free row left.
	Overlaps []string
}

// Columns returns the number of columns in use.
func (r Result) Columns() int { return r.MaxCol + 1 }

// ContentWidth returns the pixel width spanned by all columns.
func (r Result) ContentWidth() float64 { return float64(r.Columns()) * r.Config.ColSpacing }

// Compute lays out t for a viewport of the given size.
//
// Compute is pure and deterministic: the same table, viewport and
// configuration always produce the same result. A zero Config selects
// [DefaultConfig].
func Compute(t *techdata.Table, viewportWidth, viewportHeight float64, cfg Config) Result {
	if cfg.MaxRows == 0 {
		cfg = DefaultConfig()
	}

	order := Order(t)
	slots, overlaps := AllocateSlots(t, order, cfg)

	r := Result{
		Config:         cfg,
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		Order:          order,
		Slots:          slots,
		Positions:      make(map[string]Position, len(slots)),
		MaxCol:         -1,
		RowSpacing:     cfg.RowSpacing(viewportHeight),
		Overlaps:       overlaps,
	}
	for id, s := range slots {
		r.Positions[id] = cfg.Position(s, r.RowSpacing)
		r.MaxCol = max(r.MaxCol, s.Col)
	}
	r.MaxScroll = cfg.MaxScroll(r.Columns(), viewportWidth)
	return r
}
