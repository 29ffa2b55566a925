package techdata

import (
	"fmt"
	"strings"
)

// Style is the optional colour tag of a tech node. It selects the node
// background variant in renderers and never influences layout.
type Style int

const (
	StyleNone Style = iota
	StyleGreen
	StyleBlue
	StyleRed
	StyleYellow
	StylePurple
)

var styleNames = [...]string{
	StyleNone:   "",
	StyleGreen:  "green",
	StyleBlue:   "blue",
	StyleRed:    "red",
	StyleYellow: "yellow",
	StylePurple: "purple",
}

// ParseStyle converts a colour tag to a Style. The empty string maps to
// StyleNone; unknown tags are an error.
func ParseStyle(s string) (Style, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range styleNames {
		if name == s {
			return Style(i), nil
		}
	}
	return StyleNone, fmt.Errorf("unknown style %q", s)
}

// String returns the colour tag, or "" for StyleNone.
func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return ""
	}
	return styleNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Tech is the static definition of a technology.
//
// Only ID and Requires are read by the layout engine. Name, Cost, Info, Icon
// and Color are rendering payload.
type Tech struct {
	ID       string         `toml:"id" yaml:"id" json:"id"`
	Name     string         `toml:"name,omitempty" yaml:"name,omitempty" json:"name,omitempty"`
	Requires []string       `toml:"requires,omitempty" yaml:"requires,omitempty" json:"requires,omitempty"`
	Cost     map[string]int `toml:"cost,omitempty" yaml:"cost,omitempty" json:"cost,omitempty"`
	Info     string         `toml:"info,omitempty" yaml:"info,omitempty" json:"info,omitempty"`
	Icon     string         `toml:"icon,omitempty" yaml:"icon,omitempty" json:"icon,omitempty"`
	Color    Style          `toml:"color,omitempty" yaml:"color,omitempty" json:"color,omitempty"`
}

// DisplayName returns the name if set, otherwise the ID.
func (t Tech) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// IconKey returns the asset key of the tech icon. Techs without an explicit
// icon use "tech_icon_<id>".
func (t Tech) IconKey() string {
	if t.Icon != "" {
		return t.Icon
	}
	return "tech_icon_" + t.ID
}

// Edge is a prerequisite relation: To requires From.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}
