package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
	"github.com/matzehuels/rigstash/pkg/scene/memory"
	"github.com/matzehuels/rigstash/pkg/scene/scenetest"
)

var rigNodes = []string{"root_jnt", "tip_jnt", "stripShape", "strip_skin"}

func newEngine(s scene.Scene) *Engine {
	return New(s, nil, log.New(io.Discard))
}

func TestResolveName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		nameMap map[string]string
		ns      *NamespaceMap
		want    string
	}{
		{"NoRules", "ns:foo_bar", nil, nil, "ns:foo_bar"},
		{"NameAndNamespace", "ns:foo_bar", map[string]string{"foo": "baz"}, &NamespaceMap{From: "ns", To: "ns2"}, "ns2:baz_bar"},
		{"NameOnly", "L_arm_jnt", map[string]string{"L_": "R_"}, nil, "R_arm_jnt"},
		{"NameMapIgnoresNamespace", "foo:foo", map[string]string{"foo": "x"}, &NamespaceMap{From: "other", To: "y"}, "foo:x"},
		{"StripNamespace", "ns:jnt", nil, &NamespaceMap{From: "ns"}, "jnt"},
		{"AddNamespace", "jnt", nil, &NamespaceMap{To: "rig"}, "rig:jnt"},
		{"SortedSubstitution", "ab", map[string]string{"b": "c", "a": "b"}, nil, "cc"},
		{"NoNamespaceSplitWithoutMap", "a:b", map[string]string{"a": "z"}, nil, "z:b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveName(tt.in, tt.nameMap, tt.ns); got != tt.want {
				t.Errorf("ResolveName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func ExampleResolveName() {
	fmt.Println(ResolveName("ns:foo_bar", map[string]string{"foo": "baz"}, &NamespaceMap{From: "ns", To: "ns2"}))
	// Output: ns2:baz_bar
}

func TestDecide(t *testing.T) {
	tests := []struct {
		exists, recreate, creation bool
		want                       Action
		wantErr                    bool
	}{
		{false, false, true, ActionCreate, false},
		{false, true, true, ActionCreate, false},
		{false, false, false, ActionCreate, true},
		{true, false, false, ActionReuse, false},
		{true, false, true, ActionReuse, false},
		{true, true, true, ActionRecreate, false},
		{true, true, false, ActionRecreate, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("exists=%v/recreate=%v/creation=%v", tt.exists, tt.recreate, tt.creation), func(t *testing.T) {
			got, err := Decide(tt.exists, tt.recreate, tt.creation)
			if got != tt.want {
				t.Errorf("Decide = %s, want %s", got, tt.want)
			}
			if tt.wantErr != errors.Is(err, errors.ErrCodeMissingCreationData) {
				t.Errorf("Decide error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	r := scenetest.NewRig(t)
	e := newEngine(r.Scene)
	ctx := context.Background()

	doc := scenetest.Must(e.ExportNames(ctx, ExportAll, "strip_skin", "stripShape", "tip_jnt", "root_jnt"))(t)
	pos := map[string]int{}
	for i, rec := range doc.Nodes {
		pos[rec.Name] = i
	}
	before := [][2]string{
		{"root_jnt", "tip_jnt"},
		{"root_jnt", "strip_skin"},
		{"tip_jnt", "strip_skin"},
		{"stripShape", "strip_skin"},
	}
	for _, b := range before {
		if pos[b[0]] >= pos[b[1]] {
			t.Errorf("%s at %d, want before %s at %d", b[0], pos[b[0]], b[1], pos[b[1]])
		}
	}
}

func TestOrderIsStable(t *testing.T) {
	r := scenetest.NewRig(t)
	e := newEngine(r.Scene)
	ctx := context.Background()

	tests := []struct {
		names []string
		want  []string
	}{
		{
			[]string{"root_jnt", "tip_jnt", "stripShape", "strip_skin"},
			[]string{"root_jnt", "tip_jnt", "stripShape", "strip_skin"},
		},
		{
			[]string{"stripShape", "root_jnt", "strip_skin", "tip_jnt"},
			[]string{"stripShape", "root_jnt", "tip_jnt", "strip_skin"},
		},
		{
			[]string{"strip_skin", "tip_jnt", "stripShape", "root_jnt"},
			[]string{"stripShape", "root_jnt", "tip_jnt", "strip_skin"},
		},
	}
	for _, tt := range tests {
		doc := scenetest.Must(e.ExportNames(ctx, ExportAll, tt.names...))(t)
		var got []string
		for _, rec := range doc.Nodes {
			got = append(got, rec.Name)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExportNames(%v) order = %v, want %v", tt.names, got, tt.want)
		}
	}
}

func TestExportTiers(t *testing.T) {
	r := scenetest.NewRig(t)
	e := newEngine(r.Scene)

	rec := scenetest.Must(e.Export(context.Background(), r.Skin, ExportOptions{Creation: true}))(t)
	if rec.Creation == nil {
		t.Fatal("creation not exported")
	}
	if rec.Influences != nil || len(rec.Weights) > 0 {
		t.Errorf("payload exported without being selected: %+v", rec.Payload)
	}

	rec = scenetest.Must(e.Export(context.Background(), r.Skin, ExportOptions{Payload: true}))(t)
	if rec.Creation != nil {
		t.Errorf("creation exported without being selected: %+v", rec.Creation)
	}
	if rec.Influences.Len() != 2 {
		t.Errorf("influences = %+v", rec.Influences)
	}
}

func TestLoadDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := scenetest.NewRig(t)
	md := scenetest.Must(r.Scene.Create("multiplyDivide", scene.Args{Name: "scale_md"}))(t)
	scenetest.MustDo(t, r.Scene.Connect(r.Root, "translate", md, "input1"))
	scenetest.MustDo(t, r.Scene.Connect(r.Tip, "translate", md, "input2"))
	names := append(slices.Clone(rigNodes), "scale_md")

	want := scenetest.Must(newEngine(r.Scene).ExportNames(ctx, ExportAll, names...))(t)
	data := scenetest.Must(record.Marshal(want))(t)

	dst := memory.New()
	e := newEngine(dst)
	report, err := e.LoadDocument(ctx, scenetest.Must(record.Unmarshal(data))(t), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(report.Warnings) > 0 {
		t.Errorf("unexpected warnings: %+v", report.Warnings)
	}
	if len(report.Created) != len(names) {
		t.Errorf("created = %v, want %d nodes", report.Created, len(names))
	}
	if report.Connected != 2 {
		t.Errorf("connected = %d, want 2", report.Connected)
	}

	got := scenetest.Must(e.ExportNames(ctx, ExportAll, names...))(t)
	if b := scenetest.Must(record.Marshal(got))(t); !bytes.Equal(data, b) {
		t.Errorf("re-export differs\nwant: %s\ngot:  %s", data, b)
	}
}

func TestLoadPolicies(t *testing.T) {
	ctx := context.Background()
	rec := &record.Node{Type: "addDoubleLinear", Name: "add", Creation: record.NewCreation()}
	rec.SetAttr("input1", 3.0)

	t.Run("Reuse", func(t *testing.T) {
		s := memory.New()
		n := scenetest.Must(s.Create("addDoubleLinear", scene.Args{Name: "add"}))(t)
		_, report, err := newEngine(s).Load(ctx, rec, LoadOptions{})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !reflect.DeepEqual(report.Reused, []string{"add"}) {
			t.Errorf("reused = %v", report.Reused)
		}
		if v := scenetest.Must(s.GetAttr(n, "input1"))(t); v != 3.0 {
			t.Errorf("input1 = %v, want 3", v)
		}
	})

	t.Run("ReuseTypeMismatch", func(t *testing.T) {
		s := memory.New()
		scenetest.Must(s.Create("multiplyDivide", scene.Args{Name: "add"}))(t)
		bare := &record.Node{Type: "addDoubleLinear", Name: "add", Creation: record.NewCreation()}
		_, report, err := newEngine(s).Load(ctx, bare, LoadOptions{})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0].Message, "multiplyDivide") {
			t.Errorf("warnings = %+v", report.Warnings)
		}
	})

	t.Run("Recreate", func(t *testing.T) {
		s := memory.New()
		old := scenetest.Must(s.Create("addDoubleLinear", scene.Args{Name: "add"}))(t)
		scenetest.MustDo(t, s.SetAttr(old, "input2", 5.0))
		n, report, err := newEngine(s).Load(ctx, rec, LoadOptions{Recreate: true})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !reflect.DeepEqual(report.Recreated, []string{"add"}) {
			t.Errorf("recreated = %v", report.Recreated)
		}
		if v := scenetest.Must(s.GetAttr(n, "input2"))(t); v != 0.0 {
			t.Errorf("input2 = %v, want the default after recreation", v)
		}
	})

	t.Run("MissingCreationData", func(t *testing.T) {
		bare := &record.Node{Type: "addDoubleLinear", Name: "add"}
		_, _, err := newEngine(memory.New()).Load(ctx, bare, LoadOptions{})
		if !errors.Is(err, errors.ErrCodeMissingCreationData) {
			t.Errorf("err = %v, want MISSING_CREATION_DATA", err)
		}
	})

	t.Run("Renamed", func(t *testing.T) {
		s := memory.New()
		n, _, err := newEngine(s).Load(ctx, rec, LoadOptions{NameMap: map[string]string{"add": "sum"}})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if n.Name() != "sum" || s.Exists("add") {
			t.Errorf("loaded %q, scene has %v", n.Name(), s.Names())
		}
	})
}

func TestLoadDocumentPartialFailure(t *testing.T) {
	doc := &record.Document{Nodes: []*record.Node{
		{Type: "addDoubleLinear", Name: "add", Creation: record.NewCreation()},
		{Type: "mesh", Name: "brokenShape", Creation: record.NewCreation()},
		{Type: "addDoubleLinear", Name: "never", Creation: record.NewCreation()},
	}}
	s := memory.New()
	report, err := newEngine(s).LoadDocument(context.Background(), doc, LoadOptions{})
	if !errors.Is(err, errors.ErrCodeMissingCreationData) {
		t.Fatalf("err = %v, want MISSING_CREATION_DATA", err)
	}
	if report == nil || !reflect.DeepEqual(report.Created, []string{"add"}) {
		t.Fatalf("report = %+v", report)
	}
	if !s.Exists("add") || s.Exists("never") {
		t.Errorf("scene = %v", s.Names())
	}
}

func TestLoadSkippedConnection(t *testing.T) {
	rec := &record.Node{
		Type:     "addDoubleLinear",
		Name:     "add",
		Creation: record.NewCreation(),
		Connections: []record.Connection{
			{SrcNode: "gone", SrcAttr: "output", DstNode: "add", DstAttr: "input1"},
		},
	}
	rec.SetAttr("input2", 1.0)

	s := memory.New()
	n, report, err := newEngine(s).Load(context.Background(), rec, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Connected != 0 || len(report.Warnings) != 1 {
		t.Errorf("connected = %d, warnings = %+v", report.Connected, report.Warnings)
	}
	if v := scenetest.Must(s.GetAttr(n, "input2"))(t); v != 1.0 {
		t.Errorf("payload not applied after the skipped connection: input2 = %v", v)
	}
}

func TestLoadRemapsInfluences(t *testing.T) {
	ctx := context.Background()
	src := scenetest.NewRig(t)
	rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportAll))(t)

	// Same rig with the influences bound in the other order.
	s := memory.New()
	scenetest.Must(s.Create("joint", scene.Args{Name: "root_jnt"}))(t)
	scenetest.Must(s.Create("joint", scene.Args{Name: "tip_jnt", Named: map[string]any{"parent": "root_jnt"}}))(t)
	scenetest.NewStrip(t, s, "stripShape")
	skin := scenetest.Must(s.Create("skinCluster", scene.Args{
		Name:       "strip_skin",
		Positional: []any{"tip_jnt", "root_jnt"},
		Named:      map[string]any{"geometry": []string{"stripShape"}},
	}))(t)

	_, report, err := newEngine(s).Load(ctx, rec, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := report.Remapped["strip_skin"]; !ok {
		t.Errorf("remap not reported: %+v", report.Remapped)
	}

	want := scenetest.Weights(t, src.Scene, src.Skin)
	got := scenetest.Weights(t, s, skin)
	for c := range want {
		// Columns are swapped relative to the source.
		if got[c][0] != want[c][1] || got[c][1] != want[c][0] {
			t.Errorf("component %d = %v, want %v swapped", c, got[c], want[c])
		}
	}
}

// =============================================================================
// Merge
// =============================================================================

func TestMergeIdempotent(t *testing.T) {
	ctx := context.Background()
	src := scenetest.NewRig(t)
	rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportOptions{Payload: true}))(t)

	dst := scenetest.NewRig(t)
	extra := scenetest.Must(dst.Scene.Create("joint", scene.Args{Name: "extra_jnt"}))(t)
	idx := scenetest.Must(dst.Scene.AddInfluence(dst.Skin, extra))(t)
	scenetest.SetWeights(t, dst.Scene, dst.Skin, 0, 0.5, 0)
	scenetest.MustDo(t, dst.Scene.SetWeight(dst.Skin, 0, idx, 0.5))

	e := newEngine(dst.Scene)
	opts := MergeOptions{Normalize: true}
	report, err := e.Merge(ctx, rec, opts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Written != 20 {
		t.Errorf("written = %d, want 20", report.Written)
	}
	first := scenetest.Weights(t, dst.Scene, dst.Skin)
	if first[0][0] != 1 || first[0][2] != 0 {
		t.Errorf("component 0 = %v, want root only", first[0])
	}

	if _, err := e.Merge(ctx, rec, opts); err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if second := scenetest.Weights(t, dst.Scene, dst.Skin); !reflect.DeepEqual(first, second) {
		t.Errorf("second merge changed weights\nfirst:  %v\nsecond: %v", first, second)
	}
	if infs := scenetest.Must(dst.Scene.ListInfluences(dst.Skin))(t); len(infs) != 3 {
		t.Errorf("influences = %v, want extra_jnt kept", infs)
	}
}

func TestMergeThreshold(t *testing.T) {
	ctx := context.Background()
	src := scenetest.NewRig(t)
	scenetest.SetWeights(t, src.Scene, src.Skin, 3, 0.03, 0.97)
	rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportOptions{Payload: true}))(t)

	dst := scenetest.NewRig(t)
	report, err := newEngine(dst.Scene).Merge(ctx, rec, MergeOptions{WeightThreshold: 0.05})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.BelowThreshold != 1 {
		t.Errorf("below threshold = %d, want 1", report.BelowThreshold)
	}
	got := scenetest.Weights(t, dst.Scene, dst.Skin)[3]
	if got[0] != 0 || got[1] != 0.97 {
		t.Errorf("component 3 = %v, want [0 0.97]", got)
	}
}

func TestMergeInfluenceFilter(t *testing.T) {
	ctx := context.Background()
	src := scenetest.NewRig(t)
	extra := scenetest.Must(src.Scene.Create("joint", scene.Args{Name: "extra_jnt"}))(t)
	idx := scenetest.Must(src.Scene.AddInfluence(src.Skin, extra))(t)
	scenetest.SetWeights(t, src.Scene, src.Skin, 0, 0.5, 0)
	scenetest.MustDo(t, src.Scene.SetWeight(src.Skin, 0, idx, 0.5))
	rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportOptions{Payload: true}))(t)

	tests := []struct {
		name      string
		filter    func(string) bool
		wantAdded []string
		filtered  int
	}{
		{"Accept", nil, []string{"extra_jnt"}, 0},
		{"Reject", func(n string) bool { return !strings.HasPrefix(n, "extra") }, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := scenetest.NewRig(t)
			scenetest.Must(dst.Scene.Create("joint", scene.Args{Name: "extra_jnt"}))(t)
			report, err := newEngine(dst.Scene).Merge(ctx, rec, MergeOptions{Filter: tt.filter})
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			if !reflect.DeepEqual(report.Added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", report.Added, tt.wantAdded)
			}
			if report.Filtered != tt.filtered || report.Skipped != 0 {
				t.Errorf("filtered = %d, skipped = %d, want %d, 0", report.Filtered, report.Skipped, tt.filtered)
			}
		})
	}

	t.Run("RejectLive", func(t *testing.T) {
		src := scenetest.NewRig(t)
		scenetest.SetWeights(t, src.Scene, src.Skin, 0, 0.3, 0.7)
		rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportOptions{Payload: true}))(t)

		dst := scenetest.NewRig(t)
		report, err := newEngine(dst.Scene).Merge(ctx, rec, MergeOptions{
			Filter: func(n string) bool { return n != "tip_jnt" },
		})
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if got := scenetest.Weights(t, dst.Scene, dst.Skin)[0]; !reflect.DeepEqual(got, []float64{0.3, 0}) {
			t.Errorf("component 0 = %v, want [0.3 0] with tip_jnt untouched", got)
		}
		if report.Filtered != 7 {
			t.Errorf("filtered = %d, want the 7 nonzero tip_jnt weights", report.Filtered)
		}
	})
}

func TestMergeWritesRecordedZeros(t *testing.T) {
	ctx := context.Background()
	src := scenetest.NewRig(t)
	rec := scenetest.Must(newEngine(src.Scene).Export(ctx, src.Skin, ExportOptions{Payload: true}))(t)

	for _, normalize := range []bool{false, true} {
		dst := scenetest.NewRig(t)
		scenetest.SetWeights(t, dst.Scene, dst.Skin, 0, 0, 1)
		if _, err := newEngine(dst.Scene).Merge(ctx, rec, MergeOptions{Normalize: normalize}); err != nil {
			t.Fatalf("Merge(normalize=%v): %v", normalize, err)
		}
		if got := scenetest.Weights(t, dst.Scene, dst.Skin)[0]; !reflect.DeepEqual(got, []float64{1, 0}) {
			t.Errorf("normalize=%v: component 0 = %v, want [1 0]", normalize, got)
		}
	}
}

func TestMergeErrors(t *testing.T) {
	ctx := context.Background()
	r := scenetest.NewRig(t)
	e := newEngine(r.Scene)
	rec := scenetest.Must(e.Export(ctx, r.Skin, ExportOptions{Payload: true}))(t)

	if _, err := e.Merge(ctx, rec, MergeOptions{WeightThreshold: 1.5}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad threshold: err = %v", err)
	}
	missing := *rec
	missing.Name = "other_skin"
	if _, err := e.Merge(ctx, &missing, MergeOptions{}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing node: err = %v", err)
	}
}

func TestProportionalNormalizer(t *testing.T) {
	r := scenetest.NewRig(t)
	s := r.Scene
	extra := scenetest.Must(s.Create("joint", scene.Args{Name: "extra_jnt"}))(t)
	idx := scenetest.Must(s.AddInfluence(r.Skin, extra))(t)
	scenetest.SetWeights(t, s, r.Skin, 2, 0.25, 0.25)
	scenetest.MustDo(t, s.SetWeight(r.Skin, 2, idx, 0.5))

	scenetest.MustDo(t, ProportionalNormalizer{}.Normalize(s, r.Skin, 2, map[int]float64{idx: 0.8}))
	got := scenetest.Weights(t, s, r.Skin)[2]
	want := []float64{0.1, 0.1, 0.8}
	for j := range want {
		if d := got[j] - want[j]; d > 1e-12 || d < -1e-12 {
			t.Errorf("weights = %v, want %v", got, want)
			break
		}
	}
}

// =============================================================================
// Decompose
// =============================================================================

func TestEngineDecompose(t *testing.T) {
	ctx := context.Background()
	r := scenetest.NewRig(t)
	scenetest.Must(r.Scene.Create("blendShape", scene.Args{
		Name:       "strip_bs",
		Positional: []any{"stripShape"},
		Named:      map[string]any{"targets": []string{"corrective"}},
	}))(t)
	e := newEngine(r.Scene)

	target := scenetest.Must(r.Scene.EvaluatePoints(r.Shape))(t)
	target[4] = target[4].Add(scene.Vec3{0, 0, 0.5})

	d, err := e.Decompose(ctx, "stripShape", target, DecomposeOptions{BlendShape: "strip_bs"})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if !reflect.DeepEqual(d.Components, []int{4}) {
		t.Errorf("components = %v, want [4]", d.Components)
	}

	bs := scenetest.Must(r.Scene.Lookup("strip_bs"))(t)
	targets := scenetest.Must(r.Scene.GetAttr(bs, "inputTarget"))(t).([]scene.BlendTarget)
	item := targets[0].Item(scene.FullWeightItem)
	if item == nil || !reflect.DeepEqual(item.Components, []int{4}) {
		t.Errorf("stored item = %+v", item)
	}

	if _, err := e.Decompose(ctx, "stripShape", target, DecomposeOptions{BlendShape: "strip_skin"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("non blend shape target: err = %v", err)
	}
}
