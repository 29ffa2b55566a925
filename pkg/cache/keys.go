package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	json "github.com/goccy/go-json"
)

// Key type prefixes.
const (
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)

// LayoutKeyOpts are the inputs of a layout besides the table.
type LayoutKeyOpts struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Config is the layout configuration; it is hashed as JSON.
	Config any `json:"config"`
}

// ArtifactKeyOpts are the inputs of a rendered artifact besides the layout.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	// ResearchHash identifies the research state drawn, empty for none.
	ResearchHash string `json:"research_hash,omitempty"`
	// Viewport selects a viewport-sized render over the full tree.
	Viewport bool `json:"viewport,omitempty"`
	// Offset is the horizontal scroll offset, for viewport-sized renders.
	Offset float64 `json:"offset,omitempty"`
	// Scale multiplies the raster resolution.
	Scale float64 `json:"scale,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey returns the key of the layout of the table with the given
	// content hash.
	LayoutKey(tableHash string, opts LayoutKeyOpts) string

	// ArtifactKey returns the key of an artifact rendered from the layout
	// with the given content hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes every input into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(tableHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, tableHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

// KeyType returns the key type of key, ignoring a namespace such as
// DefaultRedisPrefix, or "other".
func KeyType(key string) string {
	for _, kt := range []string{KeyTypeLayout, KeyTypeArtifact} {
		if strings.HasPrefix(key, kt+":") || strings.Contains(key, ":"+kt+":") {
			return kt
		}
	}
	return "other"
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashJSON hashes the JSON encoding of v. Tables, layouts and research
// states are content-addressed this way.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}

// hashKey returns "kind:<hash of parts>".
func hashKey(kind string, parts ...any) string {
	h, _ := HashJSON(parts)
	return kind + ":" + h
}
