// Package scenetest provides scene fixtures for tests.
package scenetest

import (
	"testing"

	"github.com/matzehuels/rigstash/pkg/scene"
	"github.com/matzehuels/rigstash/pkg/scene/memory"
)

// Rig is a small skinned setup in an in-memory scene:
//
//	root_jnt            (0, 0, 0)
//	  tip_jnt           (2, 0, 0)
//	stripShape          10 vertices, a 5x2 grid in the XY plane
//	strip_skin          skin cluster on stripShape
//
// Columns x <= 1 follow root_jnt, column x == 2 is split evenly and
// columns x >= 3 follow tip_jnt.
type Rig struct {
	Scene *memory.Scene
	Root  scene.Node
	Tip   scene.Node
	Shape scene.Node
	Skin  scene.Node
}

// StripPoints returns the bind points of the rig's strip mesh.
func StripPoints() []scene.Vec3 {
	pts := make([]scene.Vec3, 10)
	for i := range pts {
		pts[i] = scene.Vec3{float64(i % 5), float64(i / 5), 0}
	}
	return pts
}

// StripFaces returns the quads of the rig's strip mesh.
func StripFaces() [][]int {
	return [][]int{{0, 1, 6, 5}, {1, 2, 7, 6}, {2, 3, 8, 7}, {3, 4, 9, 8}}
}

// NewRig builds a Rig in a fresh scene.
func NewRig(tb testing.TB) *Rig {
	tb.Helper()
	s := memory.New()
	r := &Rig{Scene: s}

	r.Root = Must(s.Create("joint", scene.Args{Name: "root_jnt"}))(tb)
	r.Tip = Must(s.Create("joint", scene.Args{Name: "tip_jnt", Named: map[string]any{"parent": "root_jnt"}}))(tb)
	MustDo(tb, s.SetAttr(r.Tip, "translate", scene.Vec3{2, 0, 0}))

	r.Shape = NewStrip(tb, s, "stripShape")
	r.Skin = Must(s.Create("skinCluster", scene.Args{
		Name:       "strip_skin",
		Positional: []any{"root_jnt", "tip_jnt"},
		Named:      map[string]any{"geometry": []string{"stripShape"}},
	}))(tb)

	for i, p := range StripPoints() {
		switch x := p.X(); {
		case x <= 1:
			SetWeights(tb, s, r.Skin, i, 1, 0)
		case x == 2:
			SetWeights(tb, s, r.Skin, i, 0.5, 0.5)
		default:
			SetWeights(tb, s, r.Skin, i, 0, 1)
		}
	}
	return r
}

// NewStrip creates an undeformed strip mesh.
func NewStrip(tb testing.TB, s scene.Scene, name string) scene.Node {
	tb.Helper()
	return Must(s.Create("mesh", scene.Args{
		Name: name,
		Named: map[string]any{
			"vertex_positions": StripPoints(),
			"faces":            StripFaces(),
		},
	}))(tb)
}

// SetWeights assigns the weights of one component, one value per
// influence index starting at 0.
func SetWeights(tb testing.TB, s scene.Scene, skin scene.Node, component int, ws ...float64) {
	tb.Helper()
	for idx, w := range ws {
		MustDo(tb, s.SetWeight(skin, component, idx, w))
	}
}

// Weights reads the full weight matrix of a skin as rows by component,
// columns by influence list position.
func Weights(tb testing.TB, s scene.Scene, skin scene.Node) [][]float64 {
	tb.Helper()
	infs := Must(s.ListInfluences(skin))(tb)
	n := Must(s.ComponentCount(skin))(tb)
	out := make([][]float64, n)
	for c := range n {
		out[c] = make([]float64, len(infs))
		for j, inf := range infs {
			out[c][j] = Must(s.Weight(skin, c, inf.Index))(tb)
		}
	}
	return out
}

// Must returns a function that fails the test on err and yields v
// otherwise:
//
//	node := scenetest.Must(s.Create("joint", args))(t)
func Must[T any](v T, err error) func(testing.TB) T {
	return func(tb testing.TB) T {
		tb.Helper()
		if err != nil {
			tb.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

// MustDo fails the test on error.
func MustDo(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
}
