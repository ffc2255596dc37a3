package memory_test

import (
	"bytes"
	"math"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
	"github.com/matzehuels/rigstash/pkg/scene/memory"
	"github.com/matzehuels/rigstash/pkg/scene/scenetest"
)

func near(a, b scene.Vec3) bool {
	return a.ApproxEqualThreshold(b, 1e-9)
}

func TestCreate(t *testing.T) {
	s := memory.New()
	root := scenetest.Must(s.Create("transform", scene.Args{Name: "grp"}))(t)

	tests := []struct {
		name     string
		typ      string
		args     scene.Args
		wantCode errors.Code
	}{
		{name: "Joint", typ: "joint", args: scene.Args{Name: "j1", Named: map[string]any{"parent": "grp"}}},
		{name: "UnknownType", typ: "fancyNode", args: scene.Args{Name: "x"}, wantCode: errors.ErrCodeCreationFailed},
		{name: "Duplicate", typ: "transform", args: scene.Args{Name: "grp"}, wantCode: errors.ErrCodeCreationFailed},
		{name: "BadName", typ: "transform", args: scene.Args{Name: "a b"}, wantCode: errors.ErrCodeCreationFailed},
		{name: "MissingParent", typ: "joint", args: scene.Args{Name: "j2", Named: map[string]any{"parent": "nope"}}, wantCode: errors.ErrCodeCreationFailed},
		{name: "NonDAGChild", typ: "network", args: scene.Args{Name: "n1", Named: map[string]any{"parent": "grp"}}, wantCode: errors.ErrCodeCreationFailed},
		{
			name: "FaceOutOfRange",
			typ:  "mesh",
			args: scene.Args{Name: "m", Named: map[string]any{
				"vertex_positions": []scene.Vec3{{0, 0, 0}},
				"faces":            [][]int{{0, 1, 2}},
			}},
			wantCode: errors.ErrCodeCreationFailed,
		},
		{name: "SkinWithoutGeometry", typ: "skinCluster", args: scene.Args{Name: "sk", Positional: []any{"grp"}}, wantCode: errors.ErrCodeCreationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Create(tt.typ, tt.args)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Create() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if n.Type() != tt.typ || n.Name() != tt.args.Name {
				t.Errorf("Create() = %s %s", n.Type(), n.Name())
			}
		})
	}

	if got := s.Parent(scenetest.Must(s.Lookup("j1"))(t)); got != root.Name() {
		t.Errorf("Parent(j1) = %q, want grp", got)
	}
}

func TestCurveKnots(t *testing.T) {
	line := []scene.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}, {0, 3, 0}}
	circle := []scene.Vec3{{1, 0, 0}, {0, 0, 1}, {-1, 0, 0}, {0, 0, -1}, {1, 0, 0}, {0, 0, 1}}

	tests := []struct {
		name     string
		named    map[string]any
		want     []float64
		wantCode errors.Code
	}{
		{name: "OpenCubic", named: map[string]any{"cvs": line}, want: []float64{0, 0, 0, 1, 1, 1}},
		{name: "Linear", named: map[string]any{"cvs": line[:3], "degree": 1}, want: []float64{0, 1, 2}},
		{name: "Periodic", named: map[string]any{"cvs": circle, "degree": 2, "form": memory.CurvePeriodic}, want: []float64{-1, 0, 1, 2, 3, 4, 5}},
		{name: "Explicit", named: map[string]any{"cvs": line, "knots": []float64{0, 0, 0, 2, 2, 2}}, want: []float64{0, 0, 0, 2, 2, 2}},
		{name: "TooFewCVs", named: map[string]any{"cvs": line[:3]}, wantCode: errors.ErrCodeCreationFailed},
		{name: "KnotCount", named: map[string]any{"cvs": line, "knots": []float64{0, 1, 2}}, wantCode: errors.ErrCodeCreationFailed},
		{name: "DecreasingKnots", named: map[string]any{"cvs": line, "knots": []float64{0, 0, 2, 1, 1, 1}}, wantCode: errors.ErrCodeCreationFailed},
		{name: "PeriodicNotClosed", named: map[string]any{"cvs": line, "degree": 2, "form": memory.CurvePeriodic}, wantCode: errors.ErrCodeCreationFailed},
		{name: "BadDegree", named: map[string]any{"cvs": line, "degree": 9}, wantCode: errors.ErrCodeCreationFailed},
		{name: "BadForm", named: map[string]any{"cvs": line, "form": 5}, wantCode: errors.ErrCodeCreationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			n, err := s.Create("nurbsCurve", scene.Args{Name: "crvShape", Named: tt.named})
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Create() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			got, _ := scene.AsFloats(scenetest.Must(s.GetAttr(n, "knots"))(t))
			if !slices.Equal(got, tt.want) {
				t.Errorf("knots = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurveOrigKeepsKnots(t *testing.T) {
	s := memory.New()
	crv := scenetest.Must(s.Create("nurbsCurve", scene.Args{Name: "crvShape", Named: map[string]any{
		"cvs":    []scene.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}},
		"degree": 2,
	}}))(t)
	scenetest.Must(s.Create("cluster", scene.Args{Name: "crv_cls", Positional: []any{"crvShape"}}))(t)

	orig := scenetest.Must(s.IntermediateSibling(crv))(t)
	if orig == nil {
		t.Fatal("deformed curve has no intermediate sibling")
	}
	for _, attr := range []string{"degree", "knots"} {
		want := scenetest.Must(s.GetAttr(crv, attr))(t)
		got := scenetest.Must(s.GetAttr(orig, attr))(t)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s on %s = %v, want %v", attr, orig.Name(), got, want)
		}
	}
}

func TestTypeCaps(t *testing.T) {
	s := memory.New()
	tests := []struct {
		tag  string
		want scene.Capability
		not  scene.Capability
	}{
		{"joint", scene.CapTransform | scene.CapDAG, scene.CapDeformer},
		{"skinCluster", scene.CapDeformer | scene.CapInfluenced, scene.CapDAG},
		{"blendShape", scene.CapDeformer, scene.CapInfluenced},
		{"mesh", scene.CapShape, scene.CapTransform},
		{"pointConstraint", scene.CapTransform, scene.CapShape},
		{"multiplyDivide", scene.CapDependency, scene.CapDAG},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			caps := s.TypeCaps(tt.tag)
			if !caps.Has(tt.want) {
				t.Errorf("caps %b missing %b", caps, tt.want)
			}
			if caps&tt.not != 0 {
				t.Errorf("caps %b unexpectedly has %b", caps, tt.not)
			}
		})
	}
	if s.TypeCaps("nope") != 0 {
		t.Error("unknown type should have no capabilities")
	}
}

func TestAttributes(t *testing.T) {
	s := memory.New()
	n := scenetest.Must(s.Create("transform", scene.Args{Name: "a"}))(t)

	// JSON-decoded forms are converted to the attribute's type.
	scenetest.MustDo(t, s.SetAttr(n, "translate", []any{1.0, 2.0, 3.0}))
	v := scenetest.Must(s.GetAttr(n, "translate"))(t)
	if v != (scene.Vec3{1, 2, 3}) {
		t.Errorf("translate = %v", v)
	}
	scenetest.MustDo(t, s.SetAttr(n, "visibility", 0.0))
	if v := scenetest.Must(s.GetAttr(n, "visibility"))(t); v != false {
		t.Errorf("visibility = %v, want false", v)
	}

	if err := s.SetAttr(n, "translate", "up"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetAttr(bad value) error = %v", err)
	}
	if _, err := s.GetAttr(n, "nope"); !errors.Is(err, errors.ErrCodeAttributeNotFound) {
		t.Errorf("GetAttr(missing) error = %v", err)
	}
	if err := s.SetAttr(n, "nope", 1); !errors.Is(err, errors.ErrCodeAttributeNotFound) {
		t.Errorf("SetAttr(missing) error = %v", err)
	}

	scenetest.MustDo(t, s.AddAttr(n, "notes", ""))
	scenetest.MustDo(t, s.SetAttr(n, "notes", "hello"))
	if v := scenetest.Must(s.GetAttr(n, "notes"))(t); v != "hello" {
		t.Errorf("notes = %v", v)
	}
}

func TestConnect(t *testing.T) {
	s := memory.New()
	a := scenetest.Must(s.Create("addDoubleLinear", scene.Args{Name: "add1"}))(t)
	b := scenetest.Must(s.Create("addDoubleLinear", scene.Args{Name: "add2"}))(t)
	x := scenetest.Must(s.Create("transform", scene.Args{Name: "x"}))(t)

	scenetest.MustDo(t, s.SetAttr(a, "input1", 2))
	scenetest.MustDo(t, s.SetAttr(a, "input2", 3))
	scenetest.MustDo(t, s.Connect(a, "output", b, "input1"))

	if v := scenetest.Must(s.GetAttr(b, "output"))(t); v != 5.0 {
		t.Errorf("add2.output = %v, want 5", v)
	}
	if err := s.Connect(a, "output", b, "input1"); err != nil {
		t.Errorf("repeating a connection should be a no-op: %v", err)
	}
	if err := s.SetAttr(b, "input1", 1); err == nil {
		t.Error("setting a driven attribute should fail")
	}

	conns := s.ListConnections(b)
	if len(conns) != 1 || conns[0].Src != "add1" || conns[0].DstAttr != "input1" {
		t.Errorf("ListConnections = %+v", conns)
	}

	if err := s.Connect(b, "output", a, "input1"); !errors.Is(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("cycle error = %v", err)
	}
	if err := s.Connect(a, "output", b, "missing"); !errors.Is(err, errors.ErrCodeAttributeNotFound) {
		t.Errorf("missing attribute error = %v", err)
	}
	if err := s.Connect(x, "translate", b, "input2"); !errors.Is(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("type mismatch error = %v", err)
	}
	if err := s.Connect(x, "translateX", b, "input2"); !errors.Is(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("missing source error = %v", err)
	}
	if err := s.Connect(b, "output", b, "input2"); !errors.Is(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("self connection error = %v", err)
	}
}

func TestSkinEvaluation(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene

	bind := scenetest.Must(s.EvaluatePoints(r.Shape))(t)
	for i, p := range scenetest.StripPoints() {
		if !near(bind[i], p) {
			t.Fatalf("bind point %d = %v, want %v", i, bind[i], p)
		}
	}

	// Rotate the tip 90 degrees about z: (3,0,0) is 1 unit from the tip and
	// swings to (2,1,0).
	scenetest.MustDo(t, s.SetAttr(r.Tip, "rotate", scene.Vec3{0, 0, 90}))
	pts := scenetest.Must(s.EvaluatePoints(r.Shape))(t)
	if !near(pts[3], scene.Vec3{2, 1, 0}) {
		t.Errorf("point 3 = %v, want (2,1,0)", pts[3])
	}
	if !near(pts[0], scene.Vec3{0, 0, 0}) {
		t.Errorf("point 0 follows root and should not move: %v", pts[0])
	}
	// Split column: halfway between (2,0,0) and the rotated (2,0,0).
	if !near(pts[2], scene.Vec3{2, 0, 0}) {
		t.Errorf("point 2 = %v, want (2,0,0)", pts[2])
	}

	scenetest.MustDo(t, s.SetAttr(r.Skin, "envelope", 0))
	pts = scenetest.Must(s.EvaluatePoints(r.Shape))(t)
	if !near(pts[3], scene.Vec3{3, 0, 0}) {
		t.Errorf("envelope 0: point 3 = %v", pts[3])
	}
}

func TestSetPoints(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene

	if err := s.SetPoints(r.Shape, scenetest.StripPoints()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetPoints(deformed) error = %v", err)
	}

	orig := scenetest.Must(s.IntermediateSibling(r.Shape))(t)
	if orig == nil || orig.Name() != "stripShapeOrig" {
		t.Fatalf("IntermediateSibling = %v", orig)
	}
	pts := scenetest.StripPoints()
	pts[4] = pts[4].Add(scene.Vec3{0, 0, 1})
	scenetest.MustDo(t, s.SetPoints(orig, pts))

	got := scenetest.Must(s.EvaluatePoints(r.Shape))(t)
	if !near(got[4], scene.Vec3{4, 0, 1}) {
		t.Errorf("point 4 = %v, want (4,0,1)", got[4])
	}
	if err := s.SetPoints(orig, pts[:3]); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetPoints(short) error = %v", err)
	}
}

func TestInfluences(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene
	extra := scenetest.Must(s.Create("joint", scene.Args{Name: "extra_jnt"}))(t)

	idx := scenetest.Must(s.AddInfluence(r.Skin, extra))(t)
	if idx != 2 {
		t.Errorf("AddInfluence index = %d, want 2", idx)
	}
	if _, err := s.AddInfluence(r.Skin, extra); err == nil {
		t.Error("adding an influence twice should fail")
	}

	scenetest.MustDo(t, s.SetWeight(r.Skin, 0, 2, 0.25))
	if w := scenetest.Must(s.Weight(r.Skin, 0, 2))(t); w != 0.25 {
		t.Errorf("Weight = %v", w)
	}
	if _, err := s.Weight(r.Skin, 0, 9); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Weight(bad index) error = %v", err)
	}
	if err := s.SetWeight(r.Skin, 99, 0, 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetWeight(bad component) error = %v", err)
	}
	if err := s.SetWeight(r.Skin, 0, 0, math.NaN()); err == nil {
		t.Error("NaN weight should fail")
	}

	scenetest.MustDo(t, s.RemoveInfluence(r.Skin, r.Root))
	infs := scenetest.Must(s.ListInfluences(r.Skin))(t)
	if len(infs) != 2 || infs[0].Name != "tip_jnt" || infs[0].Index != 1 || infs[1].Index != 2 {
		t.Errorf("ListInfluences = %+v", infs)
	}
	if _, err := s.Weight(r.Skin, 0, 0); err == nil {
		t.Error("removed influence index should be gone")
	}

	// The next index follows the highest live index.
	again := scenetest.Must(s.AddInfluence(r.Skin, r.Root))(t)
	if again != 3 {
		t.Errorf("re-added index = %d, want 3", again)
	}

	if _, err := s.ListInfluences(r.Shape); err == nil {
		t.Error("ListInfluences on a mesh should fail")
	}

	scenetest.MustDo(t, s.ClearWeights(r.Skin))
	if w := scenetest.Must(s.Weight(r.Skin, 9, 1))(t); w != 0 {
		t.Errorf("weight after clear = %v", w)
	}
}

func TestBlendShape(t *testing.T) {
	s := memory.New()
	shape := scenetest.NewStrip(t, s, "faceShape")
	bs := scenetest.Must(s.Create("blendShape", scene.Args{
		Name:       "face_bs",
		Positional: []any{"faceShape"},
		Named:      map[string]any{"targets": []any{"smile", []any{"frown", 4.0}}},
	}))(t)

	targets := []scene.BlendTarget{
		{Name: "smile", Index: 0, Items: []scene.TargetItem{{
			Index:      scene.FullWeightItem,
			Components: []int{1},
			Points:     []scene.Vec3{{0, 0, 2}},
		}}},
		{Name: "frown", Index: 4},
	}
	scenetest.MustDo(t, s.SetAttr(bs, "inputTarget", targets))
	scenetest.MustDo(t, s.SetAttr(bs, scene.WeightAttr(0), 0.5))

	pts := scenetest.Must(s.EvaluatePoints(shape))(t)
	if !near(pts[1], scene.Vec3{1, 0, 1}) {
		t.Errorf("point 1 = %v, want (1,0,1)", pts[1])
	}
	if _, err := s.GetAttr(bs, scene.WeightAttr(4)); err != nil {
		t.Errorf("weight[4] missing: %v", err)
	}

	geo := scenetest.Must(s.DeformedGeometry(bs))(t)
	if len(geo) != 1 || geo[0].Name() != "faceShape" {
		t.Errorf("DeformedGeometry = %v", geo)
	}
}

func TestDelete(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene
	set := scenetest.Must(s.Create("objectSet", scene.Args{Name: "bind_set"}))(t)
	scenetest.MustDo(t, s.SetAttr(set, "members", []string{"tip_jnt", "stripShape"}))

	scenetest.MustDo(t, s.SetAttr(r.Tip, "rotate", scene.Vec3{0, 0, 90}))
	scenetest.MustDo(t, s.Delete(r.Tip))

	if s.Exists("tip_jnt") {
		t.Fatal("tip_jnt still exists")
	}
	infs := scenetest.Must(s.ListInfluences(r.Skin))(t)
	if len(infs) != 1 || infs[0].Name != "root_jnt" {
		t.Errorf("influences after delete = %+v", infs)
	}
	if m := scenetest.Must(s.GetAttr(set, "members"))(t).([]string); len(m) != 1 || m[0] != "stripShape" {
		t.Errorf("members = %v", m)
	}

	// Deleting the only deformer bakes the intermediate points back.
	scenetest.MustDo(t, s.Delete(r.Skin))
	if s.Exists("stripShapeOrig") {
		t.Error("intermediate sibling should be removed with the last deformer")
	}
	if o := scenetest.Must(s.IntermediateSibling(r.Shape))(t); o != nil {
		t.Errorf("IntermediateSibling = %v, want nil", o)
	}
	scenetest.MustDo(t, s.SetPoints(r.Shape, scenetest.StripPoints()))

	// Deleting a parent removes its children.
	scenetest.MustDo(t, s.Delete(r.Root))
	if s.Exists("root_jnt") {
		t.Error("root_jnt still exists")
	}
	if _, err := s.GetAttr(r.Root, "translate"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("stale handle error = %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene
	add := scenetest.Must(s.Create("addDoubleLinear", scene.Args{Name: "offset"}))(t)
	scenetest.MustDo(t, s.SetAttr(add, "input1", 0.5))
	scenetest.MustDo(t, s.Connect(add, "output", r.Root, "radius"))
	scenetest.MustDo(t, s.SetAttr(r.Tip, "rotate", scene.Vec3{0, 0, 45}))

	path := filepath.Join(t.TempDir(), "scene.json")
	scenetest.MustDo(t, s.SaveFile(path))
	loaded, err := memory.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got, want := loaded.Names(), s.Names(); len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	shape := scenetest.Must(loaded.Lookup("stripShape"))(t)
	want := scenetest.Must(s.EvaluatePoints(r.Shape))(t)
	got := scenetest.Must(loaded.EvaluatePoints(shape))(t)
	for i := range want {
		if !near(got[i], want[i]) {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
	root := scenetest.Must(loaded.Lookup("root_jnt"))(t)
	if v := scenetest.Must(loaded.GetAttr(root, "radius"))(t); v != 0.5 {
		t.Errorf("connected radius = %v, want 0.5", v)
	}
	skin := scenetest.Must(loaded.Lookup("strip_skin"))(t)
	if w := scenetest.Must(loaded.Weight(skin, 2, 1))(t); w != 0.5 {
		t.Errorf("weight(2,1) = %v, want 0.5", w)
	}
}

func TestLoadRejectsDanglingReference(t *testing.T) {
	input := `{"nodes": [{"name": "a", "type": "joint", "parent": "ghost"}]}`
	if _, err := memory.Load(bytes.NewBufferString(input)); err == nil {
		t.Fatal("expected error for missing parent")
	}
}
