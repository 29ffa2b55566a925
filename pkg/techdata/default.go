package techdata

import (
	"bytes"
	_ "embed"
	"sync"
)

//go:embed default.toml
var defaultTOML []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded reference tech table. It panics if the
// embedded file is malformed, which a unit test rules out.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Decode(bytes.NewReader(defaultTOML), FormatTOML)
		if err != nil {
			panic("techdata: embedded default table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}
