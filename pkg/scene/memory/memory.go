// Package memory implements [scene.Scene] in memory.
//
// The in-memory scene stands in for a host application: it knows a fixed
// table of node types with default attributes, keeps a transform hierarchy,
// evaluates deformation chains (linear blend skinning and blend shapes) and
// saves itself as a JSON snapshot so the command-line tools can operate on
// scene files.
//
// Deforming a shape gives it an intermediate sibling named "<shape>Orig"
// holding the pre-deformation points. The shape's own points are then
// computed: [Scene.EvaluatePoints] runs the intermediate points through the
// shape's deformer history and [Scene.SetPoints] on the deformed shape is
// rejected.
package memory

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Scene is an in-memory scene graph. The zero value is not usable; use New.
type Scene struct {
	types map[string]typeInfo
	nodes map[string]*node
	order []string
	conns []scene.Connection
}

var _ scene.Scene = (*Scene)(nil)

type node struct {
	name   string
	typ    string
	caps   scene.Capability
	parent string
	attrs  map[string]any

	// shapes
	points  []scene.Vec3
	faces   [][]int
	orig    string
	history []string

	// deformers
	driven     []string
	influences []influence
	weights    map[int]map[int]float64
}

type influence struct {
	name    string
	index   int
	bindPre mgl64.Mat4
}

func (n *node) Name() string { return n.name }
func (n *node) Type() string { return n.typ }

// New returns an empty scene with the built-in type table.
func New() *Scene {
	return &Scene{
		types: builtinTypes(),
		nodes: make(map[string]*node),
	}
}

// RegisterType adds or replaces a node type. Every type is a dependency
// node; caps adds further capabilities.
func (s *Scene) RegisterType(tag string, caps scene.Capability, defaults map[string]any) {
	s.types[tag] = typeInfo{caps: caps | scene.CapDependency, attrs: cloneAttrs(defaults)}
}

// Names returns the node names in creation order.
func (s *Scene) Names() []string { return slices.Clone(s.order) }

// Intermediates returns the names of shapes that serve as the
// pre-deformation sibling of a deformed shape, in creation order.
func (s *Scene) Intermediates() []string {
	var out []string
	for _, name := range s.order {
		if o := s.nodes[name].orig; o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of nodes.
func (s *Scene) Len() int { return len(s.order) }

func (s *Scene) Exists(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

func (s *Scene) Lookup(name string) (scene.Node, error) {
	n, ok := s.nodes[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "node %q does not exist", name)
	}
	return n, nil
}

func (s *Scene) TypeCaps(typeTag string) scene.Capability {
	return s.types[typeTag].caps
}

func (s *Scene) Caps(n scene.Node) scene.Capability {
	nd, err := s.resolve(n)
	if err != nil {
		return 0
	}
	return nd.caps
}

// Parent returns the name of the DAG parent of n, or "".
func (s *Scene) Parent(n scene.Node) string {
	nd, err := s.resolve(n)
	if err != nil {
		return ""
	}
	return nd.parent
}

// Faces returns the polygon vertex lists of a shape.
func (s *Scene) Faces(mesh scene.Node) ([][]int, error) {
	nd, err := s.shape(mesh)
	if err != nil {
		return nil, err
	}
	if nd.orig != "" {
		nd = s.nodes[nd.orig]
	}
	out := make([][]int, len(nd.faces))
	for i, f := range nd.faces {
		out[i] = slices.Clone(f)
	}
	return out, nil
}

// resolve maps a handle back to its live node. Handles of deleted nodes
// and handles from other scenes fail with NOT_FOUND.
func (s *Scene) resolve(n scene.Node) (*node, error) {
	if n == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil node")
	}
	nd, ok := s.nodes[n.Name()]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "node %q does not exist", n.Name())
	}
	if h, ok := n.(*node); ok && h != nd {
		return nil, errors.New(errors.ErrCodeNotFound, "stale handle for node %q", n.Name())
	}
	return nd, nil
}

func (s *Scene) shape(n scene.Node) (*node, error) {
	nd, err := s.resolve(n)
	if err != nil {
		return nil, err
	}
	if !nd.caps.Has(scene.CapShape) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %q is not a shape", nd.typ, nd.name)
	}
	return nd, nil
}

func (s *Scene) add(n *node) {
	s.nodes[n.name] = n
	s.order = append(s.order, n.name)
}

func (s *Scene) uniqueName(base string) string {
	if !s.Exists(base) {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", base, i)
		if !s.Exists(name) {
			return name
		}
	}
}

// =============================================================================
// Creation
// =============================================================================

// Create creates a node. Recognised named arguments:
//
//   - "parent": DAG parent (DAG types)
//   - "vertex_positions", "faces", "intermediate": shape geometry
//   - "cvs", "degree", "form", "knots": curve geometry; see initCurve
//   - "geometry": shapes driven by a deformer; geometry filters other than
//     skin clusters also accept them as positional arguments
//   - "targets": blend-shape target names, or [name, index] pairs
//
// Skin clusters take their influences as positional arguments.
func (s *Scene) Create(typeTag string, args scene.Args) (scene.Node, error) {
	ti, ok := s.types[typeTag]
	if !ok {
		return nil, errors.New(errors.ErrCodeCreationFailed, "unknown node type %q", typeTag)
	}
	if err := errors.ValidateNodeName(args.Name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCreationFailed, err, "create %s", typeTag)
	}
	if s.Exists(args.Name) {
		return nil, errors.New(errors.ErrCodeCreationFailed, "node %q already exists", args.Name)
	}

	n := &node{
		name:  args.Name,
		typ:   typeTag,
		caps:  ti.caps,
		attrs: cloneAttrs(ti.attrs),
	}

	if p, ok := args.Named["parent"]; ok && p != nil && p != "" {
		name, ok := scene.AsString(p)
		if !ok {
			return nil, errors.New(errors.ErrCodeCreationFailed, "create %q: parent must be a name", args.Name)
		}
		parent, exists := s.nodes[name]
		if !exists {
			return nil, errors.New(errors.ErrCodeCreationFailed, "create %q: parent %q does not exist", args.Name, name)
		}
		if !n.caps.Has(scene.CapDAG) || !parent.caps.Has(scene.CapDAG) {
			return nil, errors.New(errors.ErrCodeCreationFailed, "create %q: %s cannot be parented under %s", args.Name, n.typ, parent.typ)
		}
		n.parent = name
	}

	switch {
	case n.typ == "nurbsCurve":
		if err := initCurve(n, args); err != nil {
			return nil, err
		}
		s.add(n)
	case n.caps.Has(scene.CapShape):
		if err := initShape(n, args); err != nil {
			return nil, err
		}
		s.add(n)
	case n.caps.Has(scene.CapDeformer):
		if err := s.initDeformer(n, args); err != nil {
			return nil, err
		}
	default:
		s.add(n)
	}
	return n, nil
}

func initShape(n *node, args scene.Args) error {
	pts, ok := scene.AsVec3s(args.Named["vertex_positions"])
	if !ok {
		return errors.New(errors.ErrCodeCreationFailed, "create %q: vertex_positions is not a point list", n.name)
	}
	faces, ok := scene.AsIntLists(args.Named["faces"])
	if !ok {
		return errors.New(errors.ErrCodeCreationFailed, "create %q: faces is not a list of vertex lists", n.name)
	}
	for _, f := range faces {
		for _, v := range f {
			if v < 0 || v >= len(pts) {
				return errors.New(errors.ErrCodeCreationFailed, "create %q: face vertex %d out of range", n.name, v)
			}
		}
	}
	n.points = pts
	n.faces = faces
	if b, _ := scene.AsBool(args.Named["intermediate"]); b {
		n.attrs["intermediateObject"] = true
	}
	return nil
}

func (s *Scene) initDeformer(n *node, args scene.Args) error {
	var geomNames, infNames []string
	if n.caps.Has(scene.CapInfluenced) {
		geomNames, _ = scene.AsStrings(args.Named["geometry"])
		infNames, _ = scene.AsStrings(args.Positional)
	} else if g, ok := args.Named["geometry"]; ok {
		geomNames, _ = scene.AsStrings(g)
	} else {
		geomNames, _ = scene.AsStrings(args.Positional)
	}

	if len(geomNames) == 0 {
		return errors.New(errors.ErrCodeCreationFailed, "create %q: %s needs geometry", n.name, n.typ)
	}
	shapes := make([]*node, 0, len(geomNames))
	for _, g := range geomNames {
		shp, ok := s.nodes[g]
		if !ok {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: geometry %q does not exist", n.name, g)
		}
		if !shp.caps.Has(scene.CapShape) {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: %q is not a shape", n.name, g)
		}
		if b, _ := scene.AsBool(shp.attrs["intermediateObject"]); b {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: %q is an intermediate object", n.name, g)
		}
		shapes = append(shapes, shp)
	}

	var infs []*node
	if n.caps.Has(scene.CapInfluenced) {
		if len(shapes) != 1 {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: %s deforms exactly one shape", n.name, n.typ)
		}
		if len(infNames) == 0 {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: %s needs at least one influence", n.name, n.typ)
		}
		for _, name := range infNames {
			inf, ok := s.nodes[name]
			if !ok {
				return errors.New(errors.ErrCodeCreationFailed, "create %q: influence %q does not exist", n.name, name)
			}
			if !inf.caps.Has(scene.CapTransform) {
				return errors.New(errors.ErrCodeCreationFailed, "create %q: influence %q is not a transform", n.name, name)
			}
			if slices.Contains(infs, inf) {
				return errors.New(errors.ErrCodeCreationFailed, "create %q: influence %q listed twice", n.name, name)
			}
			infs = append(infs, inf)
		}
	}

	if _, ok := n.attrs["inputTarget"]; ok {
		targets, err := parseTargets(args.Named["targets"])
		if err != nil {
			return errors.Wrap(errors.ErrCodeCreationFailed, err, "create %q", n.name)
		}
		n.attrs["inputTarget"] = targets
		for _, t := range targets {
			n.attrs[scene.WeightAttr(t.Index)] = 0.0
		}
	}

	for _, shp := range shapes {
		s.ensureOrig(shp)
	}
	s.add(n)
	for _, shp := range shapes {
		shp.history = append(shp.history, n.name)
		n.driven = append(n.driven, shp.name)
	}

	if n.caps.Has(scene.CapInfluenced) {
		for i, inf := range infs {
			n.influences = append(n.influences, influence{
				name:    inf.name,
				index:   i,
				bindPre: s.worldMatrix(inf).Inv(),
			})
		}
		n.weights = make(map[int]map[int]float64)
		for c := range len(s.basePoints(shapes[0])) {
			n.weights[c] = map[int]float64{0: 1}
		}
	}
	return nil
}

// ensureOrig gives a shape its intermediate sibling on first deformation.
func (s *Scene) ensureOrig(shp *node) {
	if shp.orig != "" {
		return
	}
	o := &node{
		name:   s.uniqueName(shp.name + "Orig"),
		typ:    shp.typ,
		caps:   shp.caps,
		parent: shp.parent,
		attrs:  cloneAttrs(s.types[shp.typ].attrs),
		points: slices.Clone(shp.points),
		faces:  shp.faces,
	}
	for _, k := range curveAttrs {
		if v, ok := shp.attrs[k]; ok {
			o.attrs[k] = cloneValue(v)
		}
	}
	o.attrs["intermediateObject"] = true
	s.add(o)
	shp.orig = o.name
}

// parseTargets accepts target names, [name, index] pairs or typed targets.
func parseTargets(v any) ([]scene.BlendTarget, error) {
	if v == nil {
		return nil, nil
	}
	if ts, ok := v.([]scene.BlendTarget); ok {
		return cloneTargets(ts), nil
	}
	list, ok := v.([]any)
	if !ok {
		names, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("targets must be a list")
		}
		list = make([]any, len(names))
		for i, n := range names {
			list[i] = n
		}
	}

	out := make([]scene.BlendTarget, 0, len(list))
	used := make(map[int]bool)
	for i, e := range list {
		t := scene.BlendTarget{Index: i}
		switch x := e.(type) {
		case string:
			t.Name = x
		case []any:
			if len(x) != 2 {
				return nil, fmt.Errorf("target %d must be [name, index]", i)
			}
			name, ok1 := scene.AsString(x[0])
			idx, ok2 := scene.AsInt(x[1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("target %d must be [name, index]", i)
			}
			t.Name, t.Index = name, idx
		default:
			return nil, fmt.Errorf("target %d has unsupported form %T", i, e)
		}
		if used[t.Index] {
			return nil, fmt.Errorf("target index %d used twice", t.Index)
		}
		used[t.Index] = true
		out = append(out, t)
	}
	return out, nil
}

// =============================================================================
// Deletion
// =============================================================================

// Delete removes a node, its DAG children, its connections and every
// reference other nodes hold to it. Removing the last deformer of a shape
// bakes the intermediate points back into the shape.
func (s *Scene) Delete(n scene.Node) error {
	nd, err := s.resolve(n)
	if err != nil {
		return err
	}
	s.remove(nd)
	return nil
}

func (s *Scene) remove(nd *node) {
	if _, ok := s.nodes[nd.name]; !ok {
		return
	}
	name := nd.name
	is := func(x string) bool { return x == name }

	delete(s.nodes, name)
	s.order = slices.DeleteFunc(s.order, is)
	s.conns = slices.DeleteFunc(s.conns, func(c scene.Connection) bool {
		return c.Src == name || c.Dst == name
	})

	var cascade []*node
	if o, ok := s.nodes[nd.orig]; ok {
		cascade = append(cascade, o)
	}
	for _, dname := range nd.history {
		if d, ok := s.nodes[dname]; ok {
			d.driven = slices.DeleteFunc(d.driven, is)
		}
	}

	for _, xname := range s.order {
		x := s.nodes[xname]
		if x.parent == name {
			cascade = append(cascade, x)
			continue
		}
		if x.orig == name {
			for _, dname := range x.history {
				if d, ok := s.nodes[dname]; ok {
					d.driven = slices.DeleteFunc(d.driven, func(v string) bool { return v == x.name })
				}
			}
			x.orig, x.history = "", nil
		}
		if i := slices.Index(x.history, name); i >= 0 {
			x.history = slices.Delete(x.history, i, i+1)
			if len(x.history) == 0 {
				if o, ok := s.nodes[x.orig]; ok {
					x.points = slices.Clone(o.points)
					x.faces = o.faces
					cascade = append(cascade, o)
				}
				x.orig = ""
			}
		}
		x.driven = slices.DeleteFunc(x.driven, is)
		if i := x.influencePos(name); i >= 0 {
			x.dropInfluence(i)
		}
		if members, ok := x.attrs["members"].([]string); ok {
			x.attrs["members"] = slices.DeleteFunc(members, is)
		}
	}

	for _, c := range cascade {
		s.remove(c)
	}
}
