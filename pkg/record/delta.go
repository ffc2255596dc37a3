package record

import (
	"fmt"
	"slices"

	"github.com/matzehuels/rigstash/pkg/scene"
)

// DeltaMap is a sparse per-vertex offset set. Components is the component
// mask; Points[i] is the offset of vertex Components[i]. Vertices outside
// the mask carry the zero delta.
type DeltaMap struct {
	Components []int        `json:"components"`
	Points     []scene.Vec3 `json:"points"`
}

// Len returns the number of vertices carrying a delta.
func (d *DeltaMap) Len() int { return len(d.Components) }

// Set stores the delta of vertex v, keeping Components sorted.
func (d *DeltaMap) Set(v int, delta scene.Vec3) {
	i, found := slices.BinarySearch(d.Components, v)
	if found {
		d.Points[i] = delta
		return
	}
	d.Components = slices.Insert(d.Components, i, v)
	d.Points = slices.Insert(d.Points, i, delta)
}

// Get returns the delta of vertex v and whether v is in the mask.
func (d *DeltaMap) Get(v int) (scene.Vec3, bool) {
	i, found := slices.BinarySearch(d.Components, v)
	if !found {
		return scene.Vec3{}, false
	}
	return d.Points[i], true
}

// Dense expands the map to n vertices.
func (d *DeltaMap) Dense(n int) []scene.Vec3 {
	out := make([]scene.Vec3, n)
	for i, v := range d.Components {
		if v >= 0 && v < n {
			out[v] = d.Points[i]
		}
	}
	return out
}

// Validate checks that components and points are parallel, sorted and
// unique.
func (d *DeltaMap) Validate() error {
	if len(d.Components) != len(d.Points) {
		return fmt.Errorf("delta map has %d components but %d points", len(d.Components), len(d.Points))
	}
	for i := 1; i < len(d.Components); i++ {
		if d.Components[i] <= d.Components[i-1] {
			return fmt.Errorf("delta map components not strictly increasing at %d", i)
		}
	}
	return nil
}
