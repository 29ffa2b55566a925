package layout

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/matzehuels/techtree/pkg/techdata"
)

// =============================================================================
// Document - Serialization Format
// =============================================================================

// Document is the serialization format of a computed layout, used for
// layout files, cached layouts and API responses. Nodes follow table
// declaration order, connections follow [Classify].
type Document struct {
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Columns     int          `json:"columns"`
	Rows        int          `json:"rows"`
	RowSpacing  float64      `json:"row_spacing"`
	MaxScroll   float64      `json:"max_scroll"`
	Config      Config       `json:"config"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Overlaps    []string     `json:"overlaps,omitempty"`
}

// Node is a placed tech in a [Document].
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Slot  Slot           `json:"slot"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Style techdata.Style `json:"style,omitempty"`
	Icon  string         `json:"icon,omitempty"`
}

// Export builds the serializable document of r, taking labels and styles
// from t.
func Export(t *techdata.Table, r Result) Document {
	doc := Document{
		Width:       r.ViewportWidth,
		Height:      r.ViewportHeight,
		Columns:     r.Columns(),
		Rows:        r.Config.MaxRows,
		RowSpacing:  r.RowSpacing,
		MaxScroll:   r.MaxScroll,
		Config:      r.Config,
		Connections: Classify(t, r),
		Overlaps:    r.Overlaps,
	}
	for _, tech := range t.Techs() {
		s, ok := r.Slots[tech.ID]
		if !ok {
			continue
		}
		p := r.Positions[tech.ID]
		doc.Nodes = append(doc.Nodes, Node{
			ID:    tech.ID,
			Label: tech.DisplayName(),
			Slot:  s,
			X:     p.X,
			Y:     p.Y,
			Style: tech.Color,
			Icon:  tech.IconKey(),
		})
	}
	return doc
}

// MarshalDocument serializes a Document to pretty-printed JSON bytes.
func MarshalDocument(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDocument deserializes JSON bytes into a Document.
func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if d.Rows < 1 {
		return Document{}, fmt.Errorf("layout must have at least one row")
	}
	return d, nil
}

// WriteDocumentFile writes a Document to a JSON file.
func WriteDocumentFile(d Document, path string) error {
	data, err := MarshalDocument(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDocumentFile reads a Document from a JSON file.
func ReadDocumentFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalDocument(data)
}
