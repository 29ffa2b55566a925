package viewport

// Scrollbar geometry defaults.
const (
	DefaultInset        = 50.0
	DefaultMinHandle    = 90.0
	DefaultBottomOffset = 40.0
	DefaultBarHeight    = 8.0
)

// Scrollbar is a horizontal scrollbar along the bottom of the viewport.
// The bar spans the viewport width minus Inset on each side; the handle
// width reflects the visible share of the content.
type Scrollbar struct {
	ViewportWidth  float64
	ViewportHeight float64
	Inset          float64
	MinHandle      float64
	BottomOffset   float64
	Height         float64
}

// NewScrollbar returns a scrollbar with default geometry.
func NewScrollbar(viewportWidth, viewportHeight float64) Scrollbar {
	return Scrollbar{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		Inset:          DefaultInset,
		MinHandle:      DefaultMinHandle,
		BottomOffset:   DefaultBottomOffset,
		Height:         DefaultBarHeight,
	}
}

// Visible reports whether the content overflows the viewport.
func (s Scrollbar) Visible(maxOffset float64) bool { return maxOffset > 0 }

// BarX returns the left edge of the bar.
func (s Scrollbar) BarX() float64 { return s.Inset }

// BarY returns the vertical centre of the bar.
func (s Scrollbar) BarY() float64 { return s.ViewportHeight - s.BottomOffset }

// BarWidth returns the width of the bar track.
func (s Scrollbar) BarWidth() float64 { return max(0, s.ViewportWidth-2*s.Inset) }

// HandleWidth returns the handle width for the given scroll range: the
// bar width scaled by the visible share of the content, at least MinHandle
// and at most the bar width.
func (s Scrollbar) HandleWidth(maxOffset float64) float64 {
	bar := s.BarWidth()
	if maxOffset <= 0 || s.ViewportWidth <= 0 {
		return bar
	}
	w := bar * s.ViewportWidth / (s.ViewportWidth + maxOffset)
	return min(max(w, s.MinHandle), bar)
}

// travel is the distance the handle's left edge can move.
func (s Scrollbar) travel(maxOffset float64) float64 {
	return s.BarWidth() - s.HandleWidth(maxOffset)
}

// HandleX returns the left edge of the handle for offset. It increases
// strictly with offset while the handle is narrower than the bar.
func (s Scrollbar) HandleX(offset, maxOffset float64) float64 {
	if maxOffset <= 0 {
		return s.Inset
	}
	p := min(max(offset/maxOffset, 0), 1)
	return s.Inset + p*s.travel(maxOffset)
}

// OffsetAt is the inverse of HandleX: it returns the offset that puts the
// handle's left edge at handleX, clamped to [0, maxOffset].
func (s Scrollbar) OffsetAt(handleX, maxOffset float64) float64 {
	travel := s.travel(maxOffset)
	if maxOffset <= 0 || travel <= 0 {
		return 0
	}
	p := min(max((handleX-s.Inset)/travel, 0), 1)
	return p * maxOffset
}

// HandleContains reports whether x lies on the handle.
func (s Scrollbar) HandleContains(x, offset, maxOffset float64) bool {
	left := s.HandleX(offset, maxOffset)
	return x >= left && x <= left+s.HandleWidth(maxOffset)
}
