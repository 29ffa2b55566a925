package cli

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/techdata"
	"github.com/matzehuels/techtree/pkg/viewport"
)

// chainTable returns n techs where each requires the previous one, so they
// occupy n columns of row 3.
func chainTable(n int) *techdata.Table {
	techs := make([]techdata.Tech, n)
	for i := range techs {
		techs[i] = techdata.Tech{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Tech %d", i)}
		if i > 0 {
			techs[i].Requires = []string{techs[i-1].ID}
		}
	}
	return techdata.MustTable(techs...)
}

func newTestView(t *testing.T, n int, persist func(research.State) error) viewModel {
	t.Helper()
	cfg := layout.DefaultConfig()
	state := research.State{Unlocked: map[string]bool{}, Researching: map[string]bool{}}
	return newViewModel(chainTable(n), cfg, state, persist)
}

func update(m viewModel, msg tea.Msg) (viewModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(viewModel), cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mouse(action tea.MouseAction, button tea.MouseButton, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

// nodeLine is the screen line of grid row 3.
const nodeLine = headerLines + 2*rowLines + 1

func TestViewModelScrollRange(t *testing.T) {
	m := newTestView(t, 10, nil)

	// 10 columns of 260px in an 800px viewport plus the 200px margin.
	if got := m.scroll.MaxOffset(); got != 2000 {
		t.Errorf("MaxOffset() = %v, want 2000", got)
	}

	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	if got := m.scroll.MaxOffset(); got != 1800 {
		t.Errorf("MaxOffset() after resize = %v, want 1800", got)
	}

	small := newTestView(t, 2, nil)
	if got := small.scroll.MaxOffset(); got != 0 {
		t.Errorf("MaxOffset() for two columns = %v, want 0", got)
	}
	if bar := small.scrollbarView(); bar != "" {
		t.Errorf("scrollbar drawn without overflow: %q", bar)
	}
}

func TestViewModelKeyboardScroll(t *testing.T) {
	m := newTestView(t, 10, nil)

	m, _ = update(m, key("right"))
	if got := m.scroll.Offset(); got != 260 {
		t.Errorf("Offset() after right = %v, want 260", got)
	}
	m, _ = update(m, key("left"))
	m, _ = update(m, key("left"))
	if got := m.scroll.Offset(); got != 0 {
		t.Errorf("Offset() after scrolling past start = %v, want 0", got)
	}
	m, _ = update(m, key("G"))
	if got := m.scroll.Offset(); got != m.scroll.MaxOffset() {
		t.Errorf("Offset() after end = %v, want %v", got, m.scroll.MaxOffset())
	}
}

func TestViewModelDrag(t *testing.T) {
	m := newTestView(t, 10, nil)

	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 50, 3))
	if m.scroll.State() != viewport.Dragging {
		t.Fatalf("state after press = %v, want dragging", m.scroll.State())
	}
	m, _ = update(m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 40, 3))
	if got := m.scroll.Offset(); got != 100 {
		t.Errorf("Offset() after dragging 10 cells left = %v, want 100", got)
	}
	m, _ = update(m, mouse(tea.MouseActionRelease, tea.MouseButtonNone, 40, 3))
	if m.scroll.State() != viewport.Idle {
		t.Errorf("state after release = %v, want idle", m.scroll.State())
	}
	if m.selected != "" {
		t.Errorf("drag selected %q", m.selected)
	}
}

func TestViewModelDragCancel(t *testing.T) {
	m := newTestView(t, 10, nil)

	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 50, 3))
	m, _ = update(m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 20, 3))
	m, cmd := update(m, key("esc"))
	if cmd != nil {
		t.Error("esc while dragging should not quit")
	}
	if got := m.scroll.Offset(); got != 0 {
		t.Errorf("Offset() after cancel = %v, want 0", got)
	}
}

func TestViewModelClickSelects(t *testing.T) {
	m := newTestView(t, 3, nil)

	// t0 sits in column 0: its label spans cells 3 through 23.
	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 5, nodeLine))
	m, _ = update(m, mouse(tea.MouseActionRelease, tea.MouseButtonNone, 5, nodeLine))
	if m.selected != "t0" {
		t.Fatalf("selected = %q, want t0", m.selected)
	}
	if !strings.Contains(m.View(), "Tech 0") {
		t.Error("detail line missing the selected tech")
	}

	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 5, nodeLine-1))
	m, _ = update(m, mouse(tea.MouseActionRelease, tea.MouseButtonNone, 5, nodeLine-1))
	if m.selected != "t0" {
		t.Errorf("click on empty line changed selection to %q", m.selected)
	}
}

func TestViewModelClickToleratesJitter(t *testing.T) {
	tests := []struct {
		name     string
		moveTo   int
		selected string
		offset   float64
	}{
		{"one cell right", 6, "t0", 0},
		{"one cell left", 4, "t0", 0},
		{"two cells drags", 3, "", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestView(t, 10, nil)
			m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 5, nodeLine))
			m, _ = update(m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, tt.moveTo, nodeLine))
			m, _ = update(m, mouse(tea.MouseActionRelease, tea.MouseButtonNone, tt.moveTo, nodeLine))
			if m.selected != tt.selected {
				t.Errorf("selected = %q, want %q", m.selected, tt.selected)
			}
			if got := m.scroll.Offset(); got != tt.offset {
				t.Errorf("Offset() = %v, want %v", got, tt.offset)
			}
		})
	}
}

func TestViewModelDragBackToAnchor(t *testing.T) {
	m := newTestView(t, 10, nil)
	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 50, 3))
	m, _ = update(m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 40, 3))
	m, _ = update(m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 50, 3))
	if got := m.scroll.Offset(); got != 0 {
		t.Errorf("Offset() after returning to the anchor = %v, want 0", got)
	}
}

func TestViewModelTabCycles(t *testing.T) {
	m := newTestView(t, 10, nil)

	m, _ = update(m, key("tab"))
	if m.selected != "t0" {
		t.Fatalf("selected after tab = %q, want t0", m.selected)
	}
	for range 9 {
		m, _ = update(m, key("tab"))
	}
	if m.selected != "t9" {
		t.Fatalf("selected after ten tabs = %q, want t9", m.selected)
	}
	if m.scroll.Offset() == 0 {
		t.Error("selecting the last column should scroll it into view")
	}
	m, _ = update(m, key("tab"))
	if m.selected != "t0" {
		t.Errorf("selection should wrap to t0, got %q", m.selected)
	}
}

func TestViewModelResearch(t *testing.T) {
	var saved []research.State
	m := newTestView(t, 3, func(s research.State) error {
		saved = append(saved, s)
		return nil
	})

	m, cmd := update(m, key("r"))
	if cmd != nil || !strings.Contains(m.status, "select a tech") {
		t.Fatalf("research without selection: status %q", m.status)
	}

	m, _ = update(m, key("tab"))
	m, cmd = update(m, key("r"))
	if !m.state.IsResearching("t0") {
		t.Fatal("t0 should be in progress")
	}
	if cmd == nil {
		t.Fatal("research should persist")
	}
	m, _ = update(m, cmd())
	if len(saved) != 1 || !saved[0].IsResearching("t0") {
		t.Errorf("persisted %v", saved)
	}

	m, _ = update(m, key("tab"))
	m, cmd = update(m, key("u"))
	if cmd != nil {
		t.Error("locked unlock should not persist")
	}
	if !strings.Contains(m.status, "requires") {
		t.Errorf("status = %q, want a missing requirement", m.status)
	}
}

func TestViewModelPersistError(t *testing.T) {
	m := newTestView(t, 1, nil)
	m, _ = update(m, persistedMsg{err: fmt.Errorf("disk full")})
	if !strings.Contains(m.status, "disk full") {
		t.Errorf("status = %q", m.status)
	}
}

func TestViewModelScrollbarJump(t *testing.T) {
	m := newTestView(t, 10, nil)

	m, _ = update(m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 78, m.scrollbarLine()))
	if got := m.scroll.Offset(); got != m.scroll.MaxOffset() {
		t.Errorf("Offset() after clicking the bar end = %v, want %v", got, m.scroll.MaxOffset())
	}
	if m.scroll.State() != viewport.Idle {
		t.Error("clicking the bar should not start a drag")
	}
}

func TestViewModelView(t *testing.T) {
	m := newTestView(t, 10, nil)
	view := m.View()

	for _, want := range []string{"Tech Tree", "10 techs", "[Tech 0", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "[Tech 9") {
		t.Error("column 9 should be scrolled out of view")
	}

	m, _ = update(m, key("G"))
	if !strings.Contains(m.View(), "[Tech 9") {
		t.Error("column 9 should be visible at the end")
	}
}

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  string
	}{
		{"Farming", 12, "[Farming   ]"},
		{"Agriculture", 8, "[Agric…]"},
		{"", 4, "[  ]"},
	}
	for _, tt := range tests {
		if got := nodeLabel(tt.name, tt.width); got != tt.want {
			t.Errorf("nodeLabel(%q, %d) = %q, want %q", tt.name, tt.width, got, tt.want)
		}
	}
}

func TestRenderCellsPads(t *testing.T) {
	row := []cell{{r: 'a', kind: kindAvailable}, {r: 'b', kind: kindAvailable}}
	got := renderCells(row, 1, 4)
	if !strings.Contains(got, "b") || strings.Contains(got, "a") {
		t.Errorf("renderCells = %q", got)
	}
}
