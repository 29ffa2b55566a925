package layout

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/techtree/pkg/techdata"
)

// Reference balance constants.
const (
	DefaultNodeWidth     = 214.0
	DefaultNodeHeight    = 56.0
	DefaultMaxRows       = 5
	DefaultColSpacing    = 260.0
	DefaultTopPadding    = 120.0
	DefaultBottomPadding = 120.0
	DefaultXOffset       = 140.0
	DefaultScrollMargin  = 200.0
	DefaultRow           = 3
)

// DefaultPinned returns the reference starting trees: farming, construction
// and leadership at rows 1, 3 and 5.
func DefaultPinned() map[string]int {
	return map[string]int{
		"farming_1":      1,
		"construction_1": 3,
		"leadership_1":   5,
	}
}

// Config holds the sizing constants of a layout.
//
// The zero value is not usable; start from [DefaultConfig].
type Config struct {
	NodeWidth     float64        `json:"node_width"`
	NodeHeight    float64        `json:"node_height"`
	MaxRows       int            `json:"max_rows"`
	ColSpacing    float64        `json:"col_spacing"`
	TopPadding    float64        `json:"top_padding"`
	BottomPadding float64        `json:"bottom_padding"`
	XOffset       float64        `json:"x_offset"`
	ScrollMargin  float64        `json:"scroll_margin"`
	DefaultRow    int            `json:"default_row"`
	Pinned        map[string]int `json:"pinned,omitempty"`
}

// DefaultConfig returns the reference balance configuration.
func DefaultConfig() Config {
	return Config{
		NodeWidth:     DefaultNodeWidth,
		NodeHeight:    DefaultNodeHeight,
		MaxRows:       DefaultMaxRows,
		ColSpacing:    DefaultColSpacing,
		TopPadding:    DefaultTopPadding,
		BottomPadding: DefaultBottomPadding,
		XOffset:       DefaultXOffset,
		ScrollMargin:  DefaultScrollMargin,
		DefaultRow:    DefaultRow,
		Pinned:        DefaultPinned(),
	}
}

// WithSettings overlays the layout section of a tech table file.
// A non-empty pinned map replaces the configured one.
func (c Config) WithSettings(s techdata.Settings) Config {
	if len(s.Pinned) > 0 {
		c.Pinned = maps.Clone(s.Pinned)
	}
	setInt(&c.MaxRows, s.MaxRows)
	setInt(&c.DefaultRow, s.DefaultRow)
	setFloat(&c.NodeWidth, s.NodeWidth)
	setFloat(&c.NodeHeight, s.NodeHeight)
	setFloat(&c.ColSpacing, s.ColSpacing)
	setFloat(&c.TopPadding, s.TopPadding)
	setFloat(&c.BottomPadding, s.BottomPadding)
	setFloat(&c.XOffset, s.XOffset)
	setFloat(&c.ScrollMargin, s.ScrollMargin)
	return c
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Validate reports configuration errors. [Compute] does not call it: an
// invalid configuration still yields a layout, just not a sensible one.
func (c Config) Validate() error {
	switch {
	case c.NodeWidth <= 0 || c.NodeHeight <= 0:
		return fmt.Errorf("node size must be positive, got %vx%v", c.NodeWidth, c.NodeHeight)
	case c.ColSpacing <= 0:
		return fmt.Errorf("column spacing must be positive, got %v", c.ColSpacing)
	case c.MaxRows < 1:
		return fmt.Errorf("max rows must be at least 1, got %d", c.MaxRows)
	case c.DefaultRow < 1 || c.DefaultRow > c.MaxRows:
		return fmt.Errorf("default row %d outside [1, %d]", c.DefaultRow, c.MaxRows)
	case c.TopPadding < 0 || c.BottomPadding < 0 || c.ScrollMargin < 0:
		return fmt.Errorf("paddings and scroll margin must not be negative")
	}

	byRow := make(map[int]string, len(c.Pinned))
	for _, id := range slices.Sorted(maps.Keys(c.Pinned)) {
		row := c.Pinned[id]
		if row < 1 || row > c.MaxRows {
			return fmt.Errorf("pinned tech %s: row %d outside [1, %d]", id, row, c.MaxRows)
		}
		if other, taken := byRow[row]; taken {
			return fmt.Errorf("pinned techs %s and %s share row %d", other, id, row)
		}
		byRow[row] = id
	}
	return nil
}

// RowSpacing returns the vertical distance between row centres for a
// viewport of the given height. The rows fill the space between the top and
// bottom paddings. A single-row layout has zero spacing.
func (c Config) RowSpacing(viewportHeight float64) float64 {
	if c.MaxRows <= 1 {
		return 0
	}
	return (viewportHeight - c.TopPadding - c.BottomPadding - c.NodeHeight) / float64(c.MaxRows-1)
}

// Position converts a slot to the pixel centre of its node.
func (c Config) Position(s Slot, rowSpacing float64) Position {
	return Position{
		X: float64(s.Col)*c.ColSpacing + c.XOffset,
		Y: c.TopPadding + float64(s.Row-1)*rowSpacing + c.NodeHeight/2,
	}
}

// MaxScroll returns the horizontal scroll range needed to show columns
// columns in a viewport of the given width.
func (c Config) MaxScroll(columns int, viewportWidth float64) float64 {
	if columns <= 0 {
		return 0
	}
	return max(0, float64(columns)*c.ColSpacing-viewportWidth+c.ScrollMargin)
}
