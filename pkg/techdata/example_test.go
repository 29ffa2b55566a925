package techdata_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/techtree/pkg/techdata"
)

func ExampleDecode() {
	const src = `
[[tech]]
id = "farming_1"

[[tech]]
id = "farming_2"
requires = ["farming_1"]
`
	t, err := techdata.Decode(strings.NewReader(src), techdata.FormatTOML)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, e := range t.Edges() {
		fmt.Printf("%s -> %s\n", e.From, e.To)
	}
	// Output:
	// farming_1 -> farming_2
}

func ExampleValidate() {
	t := techdata.MustTable(
		techdata.Tech{ID: "a", Requires: []string{"b"}},
		techdata.Tech{ID: "b", Requires: []string{"a"}},
		techdata.Tech{ID: "c", Requires: []string{"missing"}},
	)
	fmt.Println(techdata.Validate(t).Err())
	// Output:
	// unknown requirement: c requires missing
	// requirement cycle: a -> b
}
