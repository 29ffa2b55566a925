package cli

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/techdata"
	"github.com/matzehuels/techtree/pkg/viewport"
)

// Terminal geometry. Layout runs in pixels; one cell is pxPerCell pixels wide
// and every grid row takes rowLines lines with the node on the middle one.
const (
	pxPerCell   = 10.0
	rowLines    = 3
	headerLines = 2

	minViewWidth = 40

	// clickSlop is how many cells a pressed pointer may wander and still
	// click. One cell already exceeds viewport.DragThreshold in pixels.
	clickSlop = 1
)

// cellKind selects the style a canvas cell is drawn with.
type cellKind int

const (
	kindEmpty cellKind = iota
	kindDirect
	kindLongRange
	kindLocked
	kindAvailable
	kindResearching
	kindUnlocked
	kindSelected
)

var cellStyles = map[cellKind]lipgloss.Style{
	kindEmpty:       lipgloss.NewStyle(),
	kindDirect:      lipgloss.NewStyle().Foreground(colorGray),
	kindLongRange:   lipgloss.NewStyle().Foreground(colorDim),
	kindLocked:      lipgloss.NewStyle().Foreground(colorDim),
	kindAvailable:   lipgloss.NewStyle().Foreground(colorWhite),
	kindResearching: lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
	kindUnlocked:    lipgloss.NewStyle().Foreground(colorGreen),
	kindSelected:    lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Reverse(true),
}

var statusKinds = map[research.Status]cellKind{
	research.Locked:      kindLocked,
	research.Available:   kindAvailable,
	research.Researching: kindResearching,
	research.Unlocked:    kindUnlocked,
}

type cell struct {
	r    rune
	kind cellKind
}

// termNode is a tech placed on the terminal canvas.
type termNode struct {
	tech  techdata.Tech
	left  int
	width int
	line  int
}

// persistedMsg reports the outcome of saving a research change.
type persistedMsg struct{ err error }

// viewModel is the bubbletea model of the terminal viewer. Scrolling goes
// through a viewport.Model in pixel units, so mouse drags follow the same
// threshold and clamping rules as any other client.
type viewModel struct {
	table   *techdata.Table
	cfg     layout.Config
	state   research.State
	persist func(research.State) error

	width int

	res    layout.Result
	nodes  []termNode
	canvas [][]cell
	scroll *viewport.Model

	selected string
	status   string

	pressX  int
	dragged bool
}

func newViewModel(t *techdata.Table, cfg layout.Config, state research.State, persist func(research.State) error) viewModel {
	m := viewModel{
		table:   t,
		cfg:     cfg,
		state:   state,
		persist: persist,
		width:   80,
		scroll:  viewport.New(0),
	}
	m.relayout()
	return m
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minViewWidth)
		m.relayout()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.handleMouse(msg) {
			m.draw()
		}

	case persistedMsg:
		if msg.err != nil {
			m.status = "save failed: " + errors.UserMessage(msg.err)
		}
	}
	return m, nil
}

func (m viewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.scroll.State() == viewport.Dragging {
			m.scroll.Cancel()
			return m, nil
		}
		return m, tea.Quit
	case "left", "h":
		m.scroll.ScrollBy(-m.cfg.ColSpacing)
	case "right", "l":
		m.scroll.ScrollBy(m.cfg.ColSpacing)
	case "home", "g":
		m.scroll.SetOffset(0)
	case "end", "G":
		m.scroll.SetOffset(m.scroll.MaxOffset())
	case "tab":
		m.cycle(1)
	case "shift+tab":
		m.cycle(-1)
	case "r":
		return m.advance(research.State.StartResearch)
	case "u":
		return m.advance(research.State.Unlock)
	}
	return m, nil
}

// handleMouse applies a mouse event and reports whether the selection
// changed.
func (m *viewModel) handleMouse(msg tea.MouseMsg) bool {
	x := float64(msg.X) * pxPerCell
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if msg.Y == m.scrollbarLine() {
				m.jumpTo(msg.X)
				return false
			}
			m.pressX, m.dragged = msg.X, false
			m.scroll.PointerDown(x)
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
			m.scroll.ScrollBy(-m.cfg.ColSpacing / 2)
		case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
			m.scroll.ScrollBy(m.cfg.ColSpacing / 2)
		}
	case tea.MouseActionMotion:
		if !m.dragged && msg.X >= m.pressX-clickSlop && msg.X <= m.pressX+clickSlop {
			return false
		}
		m.dragged = true
		m.scroll.PointerMove(x)
	case tea.MouseActionRelease:
		if rel := m.scroll.PointerUp(); rel.Click {
			if id, ok := m.nodeAt(msg.X, msg.Y); ok && id != m.selected {
				m.selected = id
				m.status = ""
				return true
			}
		}
	}
	return false
}

// jumpTo centres the scrollbar handle on cell x.
func (m *viewModel) jumpTo(x int) {
	bar, maxCells := m.scrollbar()
	if !bar.Visible(maxCells) {
		return
	}
	handleX := float64(x) - bar.HandleWidth(maxCells)/2
	m.scroll.SetOffset(bar.OffsetAt(handleX, maxCells) * pxPerCell)
}

// advance applies a research step to the selected tech and persists it.
func (m viewModel) advance(step func(research.State, *techdata.Table, string) (research.State, error)) (tea.Model, tea.Cmd) {
	if m.selected == "" {
		m.status = "select a tech first (tab or click)"
		return m, nil
	}
	next, err := step(m.state, m.table, m.selected)
	if err != nil {
		m.status = errors.UserMessage(err)
		return m, nil
	}
	m.state = next
	m.status = ""
	m.draw()
	if m.persist == nil {
		return m, nil
	}
	persist := m.persist
	return m, func() tea.Msg { return persistedMsg{err: persist(next)} }
}

// cycle moves the selection through the placement order and scrolls the
// selected tech into view.
func (m *viewModel) cycle(dir int) {
	if len(m.res.Order) == 0 {
		return
	}
	i := -1
	for j, id := range m.res.Order {
		if id == m.selected {
			i = j
			break
		}
	}
	switch {
	case i < 0 && dir < 0:
		i = len(m.res.Order) - 1
	case i < 0:
		i = 0
	default:
		i = (i + dir + len(m.res.Order)) % len(m.res.Order)
	}
	m.selected = m.res.Order[i]
	m.status = ""
	m.draw()

	pos := m.res.Positions[m.selected]
	left := pos.X - m.cfg.NodeWidth/2
	right := pos.X + m.cfg.NodeWidth/2
	view := float64(m.width) * pxPerCell
	switch {
	case left < m.scroll.Offset():
		m.scroll.SetOffset(left - m.cfg.ColSpacing/2)
	case right > m.scroll.Offset()+view:
		m.scroll.SetOffset(right - view + m.cfg.ColSpacing/2)
	}
}

// relayout recomputes the layout for the current terminal size.
func (m *viewModel) relayout() {
	m.res = layout.Compute(m.table, float64(m.width)*pxPerCell, pipeline.DefaultHeight, m.cfg)
	m.scroll.SetRange(m.res.MaxScroll)
	m.draw()
}

// draw rebuilds the canvas: connectors first, then nodes on top in
// placement order.
func (m *viewModel) draw() {
	cols := m.width + int(math.Ceil(m.res.MaxScroll/pxPerCell)) + 1
	m.canvas = make([][]cell, m.cfg.MaxRows*rowLines)
	for i := range m.canvas {
		m.canvas[i] = make([]cell, cols)
	}

	for _, c := range layout.Classify(m.table, m.res) {
		m.drawConnector(c)
	}

	nodeW := max(4, int(m.cfg.NodeWidth/pxPerCell))
	m.nodes = nil
	for _, id := range m.res.Order {
		tech, _ := m.table.Lookup(id)
		slot := m.res.Slots[id]
		n := termNode{
			tech:  tech,
			left:  toCell(m.res.Positions[id].X - m.cfg.NodeWidth/2),
			width: nodeW,
			line:  (slot.Row-1)*rowLines + 1,
		}
		m.nodes = append(m.nodes, n)

		kind := statusKinds[m.state.Status(tech)]
		if id == m.selected {
			kind = kindSelected
		}
		m.put(n.line, n.left, nodeLabel(tech.DisplayName(), nodeW), kind)
	}
}

func (m *viewModel) drawConnector(c layout.Connection) {
	h, v, kind := '─', '│', kindDirect
	if c.Style == layout.LongRange {
		h, v, kind = '┄', '┆', kindLongRange
	}
	from := (m.res.Slots[c.From].Row-1)*rowLines + 1
	to := (m.res.Slots[c.To].Row-1)*rowLines + 1
	sx, ex := toCell(c.Start.X), toCell(c.End.X)-1
	if ex < sx {
		return
	}

	elbow := max(sx, ex-1)
	for x := sx; x <= ex; x++ {
		line := from
		if x > elbow {
			line = to
		}
		m.set(line, x, h, kind)
	}
	lo, hi := min(from, to), max(from, to)
	for y := lo; y <= hi; y++ {
		m.set(y, elbow, v, kind)
	}
}

func (m *viewModel) set(line, x int, r rune, kind cellKind) {
	if line < 0 || line >= len(m.canvas) || x < 0 || x >= len(m.canvas[line]) {
		return
	}
	m.canvas[line][x] = cell{r: r, kind: kind}
}

func (m *viewModel) put(line, x int, s string, kind cellKind) {
	for i, r := range []rune(s) {
		m.set(line, x+i, r, kind)
	}
}

// nodeAt returns the tech drawn at screen cell (x, y). Later nodes win
// where overlapping techs share a cell.
func (m viewModel) nodeAt(x, y int) (string, bool) {
	line := y - headerLines
	cx := x + m.offsetCells()
	for i := len(m.nodes) - 1; i >= 0; i-- {
		n := m.nodes[i]
		if n.line == line && cx >= n.left && cx < n.left+n.width {
			return n.tech.ID, true
		}
	}
	return "", false
}

func (m viewModel) offsetCells() int {
	return toCell(m.scroll.Offset())
}

func (m viewModel) scrollbarLine() int {
	return headerLines + len(m.canvas) + 1
}

// scrollbar returns the scrollbar in cell units and the scroll range in
// cells.
func (m viewModel) scrollbar() (viewport.Scrollbar, float64) {
	bar := viewport.Scrollbar{
		ViewportWidth: float64(m.width),
		Inset:         2,
		MinHandle:     4,
		Height:        1,
	}
	return bar, m.scroll.MaxOffset() / pxPerCell
}

func (m viewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Tech Tree"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d techs · %d columns", m.table.Len(), m.res.Columns())))
	b.WriteString("\n\n")

	off := m.offsetCells()
	for _, row := range m.canvas {
		b.WriteString(renderCells(row, off, m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.scrollbarView())
	b.WriteString("\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ scroll  drag pan  click/tab select  r research  u unlock  q quit"))
	return b.String()
}

func (m viewModel) scrollbarView() string {
	bar, maxCells := m.scrollbar()
	if !bar.Visible(maxCells) {
		return ""
	}
	off := m.scroll.Offset() / pxPerCell
	start := round(bar.BarX())
	end := start + round(bar.BarWidth())
	hx := round(bar.HandleX(off, maxCells))
	hw := round(bar.HandleWidth(maxCells))

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", start))
	for x := start; x < end; x++ {
		if x >= hx && x < hx+hw {
			b.WriteString(StyleHighlight.Render("━"))
		} else {
			b.WriteString(StyleDim.Render("─"))
		}
	}
	return b.String()
}

func (m viewModel) detailView() string {
	if m.status != "" {
		return StyleWarning.Render(m.status)
	}
	tech, ok := m.table.Lookup(m.selected)
	if !ok {
		return ""
	}
	status := m.state.Status(tech)
	parts := []string{
		StyleValue.Render(tech.DisplayName()),
		cellStyles[statusKinds[status]].Render(status.String()),
	}
	if len(tech.Requires) > 0 {
		parts = append(parts, "requires "+strings.Join(tech.Requires, ", "))
	}
	if tech.Info != "" {
		parts = append(parts, tech.Info)
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// renderCells styles width cells of row starting at off, batching runs of
// the same kind.
func renderCells(row []cell, off, width int) string {
	var b, run strings.Builder
	kind := kindEmpty
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(cellStyles[kind].Render(run.String()))
			run.Reset()
		}
	}
	for x := off; x < off+width; x++ {
		c := cell{r: ' '}
		if x >= 0 && x < len(row) && row[x].r != 0 {
			c = row[x]
		}
		if c.kind != kind {
			flush()
			kind = c.kind
		}
		run.WriteRune(c.r)
	}
	flush()
	return b.String()
}

// nodeLabel fits name into a bracketed label of exactly width cells.
func nodeLabel(name string, width int) string {
	inner := width - 2
	r := []rune(name)
	if len(r) > inner {
		r = append(r[:inner-1], '…')
	}
	return "[" + string(r) + strings.Repeat(" ", inner-len(r)) + "]"
}

func toCell(px float64) int {
	return round(px / pxPerCell)
}

func round(v float64) int {
	return int(math.Round(v))
}
