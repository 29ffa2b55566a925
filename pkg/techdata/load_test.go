package techdata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleTOML = `
[layout]
max_rows = 4

[layout.pinned]
root = 2

[[tech]]
id = "root"
name = "Root"
color = "green"

[[tech]]
id = "leaf"
requires = ["root"]
cost = { food = 5 }
`

const sampleYAML = `
layout:
  max_rows: 4
  pinned:
    root: 2
techs:
  - id: root
    name: Root
    color: green
  - id: leaf
    requires: [root]
    cost: {food: 5}
`

const sampleJSON = `{
  "layout": {"max_rows": 4, "pinned": {"root": 2}},
  "techs": [
    {"id": "root", "name": "Root", "color": "green"},
    {"id": "leaf", "requires": ["root"], "cost": {"food": 5}}
  ]
}`

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"TOML", FormatTOML, sampleTOML},
		{"YAML", FormatYAML, sampleYAML},
		{"JSON", FormatJSON, sampleJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Decode(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := tbl.IDs(); !slices.Equal(got, []string{"root", "leaf"}) {
				t.Errorf("IDs = %v", got)
			}
			root, _ := tbl.Lookup("root")
			if root.Color != StyleGreen || root.Name != "Root" {
				t.Errorf("root = %+v", root)
			}
			leaf, _ := tbl.Lookup("leaf")
			if leaf.Cost["food"] != 5 {
				t.Errorf("leaf cost = %v", leaf.Cost)
			}
			s := tbl.Settings()
			if s.MaxRows == nil || *s.MaxRows != 4 {
				t.Errorf("MaxRows = %v", s.MaxRows)
			}
			if s.Pinned["root"] != 2 {
				t.Errorf("Pinned = %v", s.Pinned)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		input   string
		wantErr error
	}{
		{"Empty", FormatJSON, `{"techs": []}`, ErrEmptyTable},
		{"Duplicate", FormatYAML, "techs:\n  - id: a\n  - id: a\n", ErrDuplicateID},
		{"BadStyle", FormatJSON, `{"techs": [{"id": "a", "color": "chartreuse"}]}`, nil},
		{"Syntax", FormatTOML, `[[tech`, nil},
		{"Format", Format("xml"), `<techs/>`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "techs.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d, want 2", tbl.Len())
	}

	if _, err := Load(filepath.Join(dir, "techs.ini")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatTOML, FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, Default(), format); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			back, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !slices.Equal(back.IDs(), Default().IDs()) {
				t.Errorf("IDs differ after round trip")
			}
			if !slices.Equal(back.Edges(), Default().Edges()) {
				t.Errorf("Edges differ after round trip")
			}
		})
	}
}

func TestDefault(t *testing.T) {
	tbl := Default()
	if tbl.Len() == 0 {
		t.Fatal("default table is empty")
	}
	if r := Validate(tbl); !r.OK() {
		t.Errorf("default table invalid: %v", r.Err())
	}
	pinned := tbl.Settings().Pinned
	for _, id := range []string{"farming_1", "construction_1", "leadership_1"} {
		if _, ok := pinned[id]; !ok {
			t.Errorf("default table does not pin %s", id)
		}
	}
}
