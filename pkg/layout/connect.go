package layout

import (
	"fmt"

	"github.com/matzehuels/techtree/pkg/techdata"
)

// ConnectionStyle is how a prerequisite connector is drawn.
type ConnectionStyle int

const (
	// Direct connectors join adjacent columns and are drawn solid.
	Direct ConnectionStyle = iota
	// LongRange connectors skip at least one column and are drawn dashed.
	LongRange
)

// String returns "direct" or "long-range".
func (s ConnectionStyle) String() string {
	if s == LongRange {
		return "long-range"
	}
	return "direct"
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnectionStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ConnectionStyle) UnmarshalText(b []byte) error {
	switch string(b) {
	case "direct":
		*s = Direct
	case "long-range":
		*s = LongRange
	default:
		return fmt.Errorf("unknown connection style %q", b)
	}
	return nil
}

// StyleForSpan classifies a connector by the column distance it covers.
func StyleForSpan(span int) ConnectionStyle {
	if span < 0 {
		span = -span
	}
	if span <= 1 {
		return Direct
	}
	return LongRange
}

// Connection is a positioned prerequisite connector.
type Connection struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Start Position        `json:"start"` // right edge of the prerequisite node
	End   Position        `json:"end"`   // left edge of the dependent node
	Span  int             `json:"span"`  // column distance
	Style ConnectionStyle `json:"style"`
}

// Classify returns one connection per prerequisite edge of t whose endpoints
// are both placed in r, in t.Edges order. Connectors run horizontally from
// the right edge of the prerequisite to the left edge of the dependent; no
// obstacle routing is done.
func Classify(t *techdata.Table, r Result) []Connection {
	half := r.Config.NodeWidth / 2
	var conns []Connection
	for _, e := range t.Edges() {
		from, okFrom := r.Slots[e.From]
		to, okTo := r.Slots[e.To]
		if !okFrom || !okTo {
			continue
		}
		a, b := r.Positions[e.From], r.Positions[e.To]
		span := to.Col - from.Col
		conns = append(conns, Connection{
			From:  e.From,
			To:    e.To,
			Start: Position{X: a.X + half, Y: a.Y},
			End:   Position{X: b.X - half, Y: b.Y},
			Span:  span,
			Style: StyleForSpan(span),
		})
	}
	return conns
}
