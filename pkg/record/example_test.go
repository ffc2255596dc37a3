package record_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/rigstash/pkg/record"
)

func ExampleRead() {
	input := `{
		"nodes": [
			{"type": "joint", "name": "root_jnt", "creation": {}},
			{
				"type": "skinCluster",
				"name": "skin1",
				"creation": {"_args": ["root_jnt"], "geometry": ["bodyShape"]},
				"influences": {"names": ["root_jnt"], "indices": [0]},
				"weights": [1, 1, 1]
			}
		]
	}`

	doc, err := record.Read(strings.NewReader(input))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	skin := doc.Find("skin1")
	n, _ := skin.Weights.Components(skin.Influences.Len())
	fmt.Println("Records:", doc.Names())
	fmt.Println("Influences:", skin.Creation.ArgStrings())
	fmt.Println("Geometry:", skin.Creation.Strings("geometry"))
	fmt.Println("Components:", n)
	// Output:
	// Records: [root_jnt skin1]
	// Influences: [root_jnt]
	// Geometry: [bodyShape]
	// Components: 3
}

func ExampleDeltaMap_Dense() {
	var d record.DeltaMap
	d.Set(2, [3]float64{0, 1, 0})

	for i, v := range d.Dense(3) {
		fmt.Println(i, v[0], v[1], v[2])
	}
	// Output:
	// 0 0 0 0
	// 1 0 0 0
	// 2 0 1 0
}
