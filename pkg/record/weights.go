package record

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/rigstash/pkg/scene"
)

// InfluenceList is an ordered influence list: parallel names and logical
// indices.
type InfluenceList struct {
	Names   []string `json:"names"`
	Indices []int    `json:"indices"`
}

// NewInfluenceList builds an InfluenceList from scene influences.
func NewInfluenceList(infs []scene.Influence) *InfluenceList {
	l := &InfluenceList{
		Names:   make([]string, len(infs)),
		Indices: make([]int, len(infs)),
	}
	for i, inf := range infs {
		l.Names[i] = inf.Name
		l.Indices[i] = inf.Index
	}
	return l
}

// Len returns the number of influences.
func (l *InfluenceList) Len() int { return len(l.Names) }

// Validate checks that names and indices are parallel and names unique.
func (l *InfluenceList) Validate() error {
	if len(l.Names) != len(l.Indices) {
		return fmt.Errorf("influence list has %d names but %d indices", len(l.Names), len(l.Indices))
	}
	seen := make(map[string]bool, len(l.Names))
	for _, n := range l.Names {
		if n == "" {
			return fmt.Errorf("influence list has an empty name")
		}
		if seen[n] {
			return fmt.Errorf("influence %q listed twice", n)
		}
		seen[n] = true
	}
	return nil
}

// Position returns the list position of name, or -1.
func (l *InfluenceList) Position(name string) int {
	return slices.Index(l.Names, name)
}

// Equal reports whether both lists have the same names and indices in the
// same order.
func (l *InfluenceList) Equal(o *InfluenceList) bool {
	return slices.Equal(l.Names, o.Names) && slices.Equal(l.Indices, o.Indices)
}

// WeightMatrix is a flat, row-major (by component) weight table. Column j
// belongs to the j-th entry of the record's influence list.
type WeightMatrix []float64

// Components returns the number of components for numInfluences columns.
func (w WeightMatrix) Components(numInfluences int) (int, error) {
	if numInfluences <= 0 {
		if len(w) == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("weight matrix has %d values but no influences", len(w))
	}
	if len(w)%numInfluences != 0 {
		return 0, fmt.Errorf("weight matrix length %d is not a multiple of %d influences", len(w), numInfluences)
	}
	return len(w) / numInfluences, nil
}

// At returns the weight of influence column j at component c.
func (w WeightMatrix) At(c, j, numInfluences int) float64 {
	return w[c*numInfluences+j]
}

// Row returns the weights of component c.
func (w WeightMatrix) Row(c, numInfluences int) []float64 {
	return w[c*numInfluences : (c+1)*numInfluences]
}

// IndexMap maps recorded influence indices to live ones.
type IndexMap map[int]int

// Lookup returns the live index for old, or old when unmapped.
func (m IndexMap) Lookup(old int) int {
	if n, ok := m[old]; ok {
		return n
	}
	return old
}

// Keys returns the mapped recorded indices in ascending order.
func (m IndexMap) Keys() []int {
	return slices.Sorted(maps.Keys(m))
}
