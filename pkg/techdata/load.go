package techdata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies a tech table encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// File is the on-disk shape of a tech table. TOML files declare techs as an
// array of [[tech]] tables; YAML and JSON use a "techs" list.
type File struct {
	Layout *Settings `toml:"layout,omitempty" yaml:"layout,omitempty" json:"layout,omitempty"`
	Techs  []Tech    `toml:"tech" yaml:"techs" json:"techs"`
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported tech table extension %q (want .toml, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// Load reads a tech table file, inferring the format from its extension.
func Load(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode reads a tech table in the given format.
// Returns ErrEmptyTable if the input defines no techs.
func Decode(r io.Reader, format Format) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var f File
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if len(f.Techs) == 0 {
		return nil, ErrEmptyTable
	}
	t, err := NewTable(f.Techs)
	if err != nil {
		return nil, err
	}
	if f.Layout != nil {
		t.settings = *f.Layout
	}
	return t, nil
}

// Encode writes t in the given format.
func Encode(w io.Writer, t *Table, format Format) error {
	f := t.File()
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// File returns the serialisable form of t.
func (t *Table) File() File {
	f := File{Techs: t.Techs()}
	if !t.settings.IsZero() {
		s := t.settings
		f.Layout = &s
	}
	return f
}

// IsZero reports whether no override is set.
func (s Settings) IsZero() bool {
	return len(s.Pinned) == 0 && s.MaxRows == nil && s.DefaultRow == nil &&
		s.NodeWidth == nil && s.NodeHeight == nil && s.ColSpacing == nil &&
		s.TopPadding == nil && s.BottomPadding == nil && s.XOffset == nil &&
		s.ScrollMargin == nil
}
