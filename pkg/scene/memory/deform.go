package memory

import (
	"maps"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// =============================================================================
// Transforms
// =============================================================================

func (s *Scene) vec(nd *node, attr string, fallback scene.Vec3) scene.Vec3 {
	v, err := s.value(nd, attr)
	if err != nil {
		return fallback
	}
	p, ok := scene.AsVec3(v)
	if !ok {
		return fallback
	}
	return p
}

func (s *Scene) float(nd *node, attr string, fallback float64) float64 {
	v, err := s.value(nd, attr)
	if err != nil {
		return fallback
	}
	f, ok := scene.AsFloat(v)
	if !ok {
		return fallback
	}
	return f
}

// rotateXYZ builds a rotation from euler angles in degrees, applied in
// x, y, z order.
func rotateXYZ(deg scene.Vec3) mgl64.Mat4 {
	rx := mgl64.HomogRotate3DX(mgl64.DegToRad(deg.X()))
	ry := mgl64.HomogRotate3DY(mgl64.DegToRad(deg.Y()))
	rz := mgl64.HomogRotate3DZ(mgl64.DegToRad(deg.Z()))
	return rz.Mul4(ry).Mul4(rx)
}

func (s *Scene) localMatrix(nd *node) mgl64.Mat4 {
	t := s.vec(nd, "translate", scene.Vec3{})
	sc := s.vec(nd, "scale", scene.Vec3{1, 1, 1})
	m := mgl64.Translate3D(t.X(), t.Y(), t.Z())
	if _, ok := nd.attrs["jointOrient"]; ok {
		m = m.Mul4(rotateXYZ(s.vec(nd, "jointOrient", scene.Vec3{})))
	}
	return m.Mul4(rotateXYZ(s.vec(nd, "rotate", scene.Vec3{}))).Mul4(mgl64.Scale3D(sc.X(), sc.Y(), sc.Z()))
}

func (s *Scene) worldMatrix(nd *node) mgl64.Mat4 {
	m := mgl64.Ident4()
	for cur := nd; cur != nil; cur = s.nodes[cur.parent] {
		if cur.caps.Has(scene.CapTransform) {
			m = s.localMatrix(cur).Mul4(m)
		}
		if cur.parent == "" {
			break
		}
	}
	return m
}

// WorldMatrix returns the world matrix of a DAG node.
func (s *Scene) WorldMatrix(n scene.Node) (mgl64.Mat4, error) {
	nd, err := s.resolve(n)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return s.worldMatrix(nd), nil
}

// =============================================================================
// Points
// =============================================================================

// EvaluatePoints returns the points of a shape after its deformer history.
func (s *Scene) EvaluatePoints(mesh scene.Node) ([]scene.Vec3, error) {
	nd, err := s.shape(mesh)
	if err != nil {
		return nil, err
	}
	return s.evaluate(nd), nil
}

func (s *Scene) evaluate(nd *node) []scene.Vec3 {
	if nd.orig == "" {
		return slices.Clone(nd.points)
	}
	pts := slices.Clone(s.nodes[nd.orig].points)
	for _, dname := range nd.history {
		def := s.nodes[dname]
		env := s.float(def, "envelope", 1)
		if env == 0 {
			continue
		}
		switch {
		case def.caps.Has(scene.CapInfluenced):
			pts = s.skin(def, pts, env)
		case def.typ == "blendShape":
			s.blend(def, pts, env)
		}
	}
	return pts
}

// skin applies linear blend skinning. Components with no weight keep
// their input position.
func (s *Scene) skin(def *node, pts []scene.Vec3, env float64) []scene.Vec3 {
	mats := make(map[int]mgl64.Mat4, len(def.influences))
	for _, inf := range def.influences {
		if j, ok := s.nodes[inf.name]; ok {
			mats[inf.index] = s.worldMatrix(j).Mul4(inf.bindPre)
		}
	}

	out := make([]scene.Vec3, len(pts))
	for i, p := range pts {
		row := def.weights[i]
		var (
			acc   scene.Vec3
			total float64
		)
		for _, idx := range slices.Sorted(maps.Keys(row)) {
			m, ok := mats[idx]
			if !ok {
				continue
			}
			w := row[idx]
			acc = acc.Add(m.Mul4x1(p.Vec4(1)).Vec3().Mul(w))
			total += w
		}
		if total == 0 {
			out[i] = p
			continue
		}
		out[i] = p.Add(acc.Sub(p).Mul(env))
	}
	return out
}

func (s *Scene) blend(def *node, pts []scene.Vec3, env float64) {
	targets, _ := def.attrs["inputTarget"].([]scene.BlendTarget)
	for _, t := range targets {
		w := s.float(def, scene.WeightAttr(t.Index), 0)
		if w == 0 {
			continue
		}
		item := t.Item(scene.FullWeightItem)
		if item == nil {
			continue
		}
		for k, c := range item.Components {
			if c >= 0 && c < len(pts) && k < len(item.Points) {
				pts[c] = pts[c].Add(item.Points[k].Mul(w * env))
			}
		}
	}
}

// SetPoints replaces the points of an undeformed shape. Deformed shapes
// are computed from their intermediate sibling, which must be set instead.
func (s *Scene) SetPoints(mesh scene.Node, points []scene.Vec3) error {
	nd, err := s.shape(mesh)
	if err != nil {
		return err
	}
	if nd.orig != "" {
		return errors.New(errors.ErrCodeInvalidInput, "%q is deformed; set the points of %q", nd.name, nd.orig)
	}
	if len(nd.points) > 0 && len(points) != len(nd.points) {
		return errors.New(errors.ErrCodeInvalidInput, "%q has %d points, got %d", nd.name, len(nd.points), len(points))
	}
	nd.points = slices.Clone(points)
	return nil
}

// DeformedGeometry returns the shapes driven by a deformer.
func (s *Scene) DeformedGeometry(deformer scene.Node) ([]scene.Node, error) {
	nd, err := s.deformer(deformer)
	if err != nil {
		return nil, err
	}
	out := make([]scene.Node, 0, len(nd.driven))
	for _, name := range nd.driven {
		out = append(out, s.nodes[name])
	}
	return out, nil
}

// IntermediateSibling returns the pre-deformation sibling of a shape, or
// nil when the shape is not deformed.
func (s *Scene) IntermediateSibling(shape scene.Node) (scene.Node, error) {
	nd, err := s.shape(shape)
	if err != nil {
		return nil, err
	}
	if nd.orig == "" {
		return nil, nil
	}
	return s.nodes[nd.orig], nil
}

// basePoints returns the pre-deformation points of a shape.
func (s *Scene) basePoints(shp *node) []scene.Vec3 {
	if o, ok := s.nodes[shp.orig]; ok {
		return o.points
	}
	return shp.points
}

// =============================================================================
// Influences and Weights
// =============================================================================

func (s *Scene) deformer(n scene.Node) (*node, error) {
	nd, err := s.resolve(n)
	if err != nil {
		return nil, err
	}
	if !nd.caps.Has(scene.CapDeformer) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %q is not a deformer", nd.typ, nd.name)
	}
	return nd, nil
}

func (s *Scene) influenced(n scene.Node) (*node, error) {
	nd, err := s.deformer(n)
	if err != nil {
		return nil, err
	}
	if !nd.caps.Has(scene.CapInfluenced) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %q has no influences", nd.typ, nd.name)
	}
	return nd, nil
}

func (n *node) influencePos(name string) int {
	return slices.IndexFunc(n.influences, func(inf influence) bool { return inf.name == name })
}

func (n *node) hasIndex(idx int) bool {
	return slices.ContainsFunc(n.influences, func(inf influence) bool { return inf.index == idx })
}

// dropInfluence removes the influence at list position i and its weights.
func (n *node) dropInfluence(i int) {
	idx := n.influences[i].index
	n.influences = slices.Delete(n.influences, i, i+1)
	for _, row := range n.weights {
		delete(row, idx)
	}
}

func (s *Scene) ListInfluences(deformer scene.Node) ([]scene.Influence, error) {
	nd, err := s.influenced(deformer)
	if err != nil {
		return nil, err
	}
	out := make([]scene.Influence, len(nd.influences))
	for i, inf := range nd.influences {
		out[i] = scene.Influence{Name: inf.name, Index: inf.index}
	}
	return out, nil
}

// AddInfluence appends obj to the influence list at the next free index.
// Its current world matrix becomes its bind pose.
func (s *Scene) AddInfluence(deformer, obj scene.Node) (int, error) {
	nd, err := s.influenced(deformer)
	if err != nil {
		return 0, err
	}
	inf, err := s.resolve(obj)
	if err != nil {
		return 0, err
	}
	if !inf.caps.Has(scene.CapTransform) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%q is not a transform", inf.name)
	}
	if nd.influencePos(inf.name) >= 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%q is already an influence of %q", inf.name, nd.name)
	}
	idx := 0
	for _, e := range nd.influences {
		idx = max(idx, e.index+1)
	}
	nd.influences = append(nd.influences, influence{
		name:    inf.name,
		index:   idx,
		bindPre: s.worldMatrix(inf).Inv(),
	})
	return idx, nil
}

func (s *Scene) RemoveInfluence(deformer, obj scene.Node) error {
	nd, err := s.influenced(deformer)
	if err != nil {
		return err
	}
	if obj == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil influence")
	}
	i := nd.influencePos(obj.Name())
	if i < 0 {
		return errors.New(errors.ErrCodeNotFound, "%q is not an influence of %q", obj.Name(), nd.name)
	}
	nd.dropInfluence(i)
	return nil
}

func (s *Scene) ComponentCount(deformer scene.Node) (int, error) {
	nd, err := s.deformer(deformer)
	if err != nil {
		return 0, err
	}
	if len(nd.driven) == 0 {
		return 0, nil
	}
	return len(s.basePoints(s.nodes[nd.driven[0]])), nil
}

func (s *Scene) checkWeight(nd *node, component, idx int) error {
	n := 0
	if len(nd.driven) > 0 {
		n = len(s.basePoints(s.nodes[nd.driven[0]]))
	}
	if component < 0 || component >= n {
		return errors.New(errors.ErrCodeInvalidInput, "%s: component %d out of range [0, %d)", nd.name, component, n)
	}
	if !nd.hasIndex(idx) {
		return errors.New(errors.ErrCodeNotFound, "%s: no influence at index %d", nd.name, idx)
	}
	return nil
}

func (s *Scene) Weight(deformer scene.Node, component, influenceIndex int) (float64, error) {
	nd, err := s.influenced(deformer)
	if err != nil {
		return 0, err
	}
	if err := s.checkWeight(nd, component, influenceIndex); err != nil {
		return 0, err
	}
	return nd.weights[component][influenceIndex], nil
}

// SetWeight assigns one weight. A zero weight removes the entry.
func (s *Scene) SetWeight(deformer scene.Node, component, influenceIndex int, w float64) error {
	nd, err := s.influenced(deformer)
	if err != nil {
		return err
	}
	if err := s.checkWeight(nd, component, influenceIndex); err != nil {
		return err
	}
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "%s: invalid weight %v", nd.name, w)
	}
	if w == 0 {
		delete(nd.weights[component], influenceIndex)
		return nil
	}
	if nd.weights[component] == nil {
		nd.weights[component] = make(map[int]float64)
	}
	nd.weights[component][influenceIndex] = w
	return nil
}

func (s *Scene) ClearWeights(deformer scene.Node) error {
	nd, err := s.influenced(deformer)
	if err != nil {
		return err
	}
	nd.weights = make(map[int]map[int]float64)
	return nil
}
