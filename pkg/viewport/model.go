package viewport

// DragThreshold is the horizontal distance in pixels a pointer must travel
// after PointerDown before the gesture scrolls instead of clicking.
const DragThreshold = 6.0

// State is the gesture state of a [Model].
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Release describes a finished pointer gesture.
type Release struct {
	// Click is true when the pointer never travelled past DragThreshold.
	Click bool
	// X is the pointer position the gesture started at.
	X float64
}

// Model is the scroll state of a viewport. The zero value is an idle model
// with nothing to scroll.
//
// Model is not safe for concurrent use.
type Model struct {
	state     State
	offset    float64
	maxOffset float64

	anchorX      float64
	anchorOffset float64
	moved        bool
}

// New returns an idle model at offset 0 with the given scroll range.
func New(maxOffset float64) *Model {
	m := &Model{}
	m.SetRange(maxOffset)
	return m
}

// State returns the current gesture state.
func (m *Model) State() State { return m.state }

// Offset returns the current scroll offset, always in [0, MaxOffset].
func (m *Model) Offset() float64 { return m.offset }

// MaxOffset returns the largest valid offset.
func (m *Model) MaxOffset() float64 { return m.maxOffset }

// ContentX returns the horizontal translation to apply to the content layer.
func (m *Model) ContentX() float64 { return -m.offset }

// Progress returns the offset as a fraction of the range, or 0 when there is
// nothing to scroll.
func (m *Model) Progress() float64 {
	if m.maxOffset <= 0 {
		return 0
	}
	return m.offset / m.maxOffset
}

// SetRange updates the scroll range, typically after a relayout, and clamps
// the current offset into it. Negative ranges are treated as 0.
func (m *Model) SetRange(maxOffset float64) {
	m.maxOffset = max(0, maxOffset)
	m.offset = m.clamp(m.offset)
	m.anchorOffset = m.clamp(m.anchorOffset)
}

// SetOffset moves to offset, clamped to the valid range.
func (m *Model) SetOffset(offset float64) {
	m.offset = m.clamp(offset)
}

// ScrollBy moves the offset by delta pixels, clamped. Positive deltas reveal
// columns further right.
func (m *Model) ScrollBy(delta float64) {
	m.SetOffset(m.offset + delta)
}

// PointerDown starts a gesture at pointer position x. A PointerDown while
// already dragging re-anchors the gesture.
func (m *Model) PointerDown(x float64) {
	m.state = Dragging
	m.anchorX = x
	m.anchorOffset = m.offset
	m.moved = false
}

// PointerMove tracks the pointer at x and reports whether the offset
// changed. It is ignored while idle. Once the pointer has moved more than
// DragThreshold from the anchor the content follows it: the offset becomes
// the anchor offset minus the distance travelled.
func (m *Model) PointerMove(x float64) bool {
	if m.state != Dragging {
		return false
	}
	dx := x - m.anchorX
	if !m.moved && abs(dx) <= DragThreshold {
		return false
	}
	m.moved = true
	prev := m.offset
	m.offset = m.clamp(m.anchorOffset - dx)
	return m.offset != prev
}

// PointerUp ends the gesture. Ending a gesture that was never started
// reports a non-click release.
func (m *Model) PointerUp() Release {
	if m.state != Dragging {
		return Release{}
	}
	m.state = Idle
	return Release{Click: !m.moved, X: m.anchorX}
}

// Cancel abandons the current gesture, restoring the offset it started at.
func (m *Model) Cancel() {
	if m.state != Dragging {
		return
	}
	m.state = Idle
	m.offset = m.anchorOffset
	m.moved = false
}

func (m *Model) clamp(v float64) float64 {
	return min(max(v, 0), m.maxOffset)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
