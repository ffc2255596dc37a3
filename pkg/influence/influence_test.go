package influence

import (
	"bytes"
	"slices"
	"testing"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
	"github.com/matzehuels/rigstash/pkg/scene/scenetest"
)

func snapshot(t *testing.T, r *scenetest.Rig) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Scene.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return buf.Bytes()
}

func TestRemapIdentity(t *testing.T) {
	r := scenetest.NewRig(t)
	before := snapshot(t, r)

	recorded := &record.InfluenceList{Names: []string{"root_jnt", "tip_jnt"}, Indices: []int{0, 1}}
	m, res, err := Remap(r.Scene, r.Skin, recorded, Options{})
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if len(m) != 0 || !res.Identity {
		t.Errorf("identity remap = %v, %+v; want empty map", m, res)
	}
	if !bytes.Equal(before, snapshot(t, r)) {
		t.Error("identity remap mutated the scene")
	}
}

func TestRemapCompleteness(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, r *scenetest.Rig)
		recorded         *record.InfluenceList
		wantLive         []string
		wantPlaceholders []string
		wantRemoved      []string
		wantMap          record.IndexMap
	}{
		{
			name:     "Reordered",
			recorded: &record.InfluenceList{Names: []string{"tip_jnt", "root_jnt"}, Indices: []int{0, 1}},
			wantLive: []string{"root_jnt", "tip_jnt"},
			wantMap:  record.IndexMap{0: 1, 1: 0},
		},
		{
			name: "ShiftedIndices",
			recorded: &record.InfluenceList{
				Names:   []string{"root_jnt", "tip_jnt"},
				Indices: []int{4, 7},
			},
			wantLive: []string{"root_jnt", "tip_jnt"},
			wantMap:  record.IndexMap{4: 0, 7: 1},
		},
		{
			name: "MissingObjectGetsPlaceholder",
			recorded: &record.InfluenceList{
				Names:   []string{"root_jnt", "ghost_jnt", "tip_jnt"},
				Indices: []int{0, 1, 2},
			},
			wantLive:         []string{"root_jnt", "tip_jnt", "ghost_jnt"},
			wantPlaceholders: []string{"ghost_jnt"},
			wantMap:          record.IndexMap{0: 0, 1: 2, 2: 1},
		},
		{
			name: "ExistingObjectAdded",
			setup: func(t *testing.T, r *scenetest.Rig) {
				scenetest.Must(r.Scene.Create("joint", scene.Args{Name: "arm_jnt"}))(t)
			},
			recorded: &record.InfluenceList{
				Names:   []string{"arm_jnt", "root_jnt", "tip_jnt"},
				Indices: []int{0, 1, 2},
			},
			wantLive: []string{"root_jnt", "tip_jnt", "arm_jnt"},
			wantMap:  record.IndexMap{0: 2, 1: 0, 2: 1},
		},
		{
			name:        "ExtraRemoved",
			recorded:    &record.InfluenceList{Names: []string{"root_jnt"}, Indices: []int{0}},
			wantLive:    []string{"root_jnt"},
			wantRemoved: []string{"tip_jnt"},
			wantMap:     record.IndexMap{0: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scenetest.NewRig(t)
			if tt.setup != nil {
				tt.setup(t, r)
			}

			m, res, err := Remap(r.Scene, r.Skin, tt.recorded, Options{})
			if err != nil {
				t.Fatalf("Remap: %v", err)
			}
			if res.Identity {
				t.Fatal("unexpected identity result")
			}

			// Every recorded influence has an entry.
			for _, old := range tt.recorded.Indices {
				if _, ok := m[old]; !ok {
					t.Errorf("no map entry for recorded index %d", old)
				}
			}
			for old, want := range tt.wantMap {
				if m[old] != want {
					t.Errorf("m[%d] = %d, want %d", old, m[old], want)
				}
			}

			live := scenetest.Must(r.Scene.ListInfluences(r.Skin))(t)
			var names []string
			for _, inf := range live {
				names = append(names, inf.Name)
				if !slices.Contains(tt.recorded.Names, inf.Name) {
					t.Errorf("live influence %s is not recorded and was not removed", inf.Name)
				}
			}
			if !slices.Equal(names, tt.wantLive) {
				t.Errorf("live influences = %v, want %v", names, tt.wantLive)
			}
			if !slices.Equal(res.Placeholders, tt.wantPlaceholders) {
				t.Errorf("placeholders = %v, want %v", res.Placeholders, tt.wantPlaceholders)
			}
			if !slices.Equal(res.Removed, tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", res.Removed, tt.wantRemoved)
			}
		})
	}
}

func TestPlaceholderParenting(t *testing.T) {
	r := scenetest.NewRig(t)
	recorded := &record.InfluenceList{Names: []string{"a_jnt", "b_jnt"}, Indices: []int{0, 1}}
	if _, _, err := Remap(r.Scene, r.Skin, recorded, Options{}); err != nil {
		t.Fatalf("Remap: %v", err)
	}
	for _, name := range recorded.Names {
		n := scenetest.Must(r.Scene.Lookup(name))(t)
		if p := r.Scene.Parent(n); p != PlaceholderGroup {
			t.Errorf("parent of %s = %q, want %s", name, p, PlaceholderGroup)
		}
	}
	live := scenetest.Must(r.Scene.ListInfluences(r.Skin))(t)
	if len(live) != 2 || live[0].Name != "a_jnt" || live[1].Name != "b_jnt" {
		t.Errorf("live = %+v", live)
	}
}

func TestRemapMergePolicy(t *testing.T) {
	r := scenetest.NewRig(t)
	scenetest.Must(r.Scene.Create("joint", scene.Args{Name: "arm_jnt"}))(t)
	scenetest.Must(r.Scene.Create("joint", scene.Args{Name: "leg_jnt"}))(t)

	recorded := &record.InfluenceList{
		Names:   []string{"root_jnt", "arm_jnt", "leg_jnt", "ghost_jnt"},
		Indices: []int{0, 1, 2, 3},
	}
	m, res, err := Remap(r.Scene, r.Skin, recorded, Options{
		Filter:         func(name string) bool { return name != "leg_jnt" },
		NoPlaceholders: true,
		KeepExtra:      true,
	})
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if !slices.Equal(res.Added, []string{"arm_jnt"}) {
		t.Errorf("added = %v", res.Added)
	}
	if !slices.Equal(res.Skipped, []string{"leg_jnt", "ghost_jnt"}) {
		t.Errorf("skipped = %v", res.Skipped)
	}
	if len(res.Removed) != 0 {
		t.Errorf("removed = %v, want none", res.Removed)
	}
	if _, ok := res.Lookup(m, 2); ok {
		t.Error("skipped influence should have no destination")
	}
	if idx, ok := res.Lookup(m, 1); !ok || idx != 2 {
		t.Errorf("Lookup(1) = %d, %v", idx, ok)
	}
	if r.Scene.Exists(PlaceholderGroup) {
		t.Error("placeholder group created although placeholders are disabled")
	}
}

func TestRemapResolvesNames(t *testing.T) {
	r := scenetest.NewRig(t)
	recorded := &record.InfluenceList{Names: []string{"old:root_jnt", "old:tip_jnt"}, Indices: []int{0, 1}}
	m, res, err := Remap(r.Scene, r.Skin, recorded, Options{
		Resolve: func(n string) string { return n[len("old:"):] },
	})
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if !res.Identity || len(m) != 0 {
		t.Errorf("resolved names should match live list: %v %+v", m, res)
	}
}

func TestRemapFailure(t *testing.T) {
	r := scenetest.NewRig(t)
	// A mesh cannot become an influence.
	recorded := &record.InfluenceList{Names: []string{"root_jnt", "stripShape"}, Indices: []int{0, 1}}
	_, _, err := Remap(r.Scene, r.Skin, recorded, Options{})
	if !errors.Is(err, errors.ErrCodeInfluenceResolution) {
		t.Fatalf("error = %v, want %s", err, errors.ErrCodeInfluenceResolution)
	}

	if _, _, err := Remap(r.Scene, r.Shape, recorded, Options{}); !errors.Is(err, errors.ErrCodeInfluenceResolution) {
		t.Errorf("remap on a mesh error = %v", err)
	}
}
