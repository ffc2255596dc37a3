package registry

import (
	"sync"
	"testing"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

type stubHandler struct{ id string }

func (stubHandler) Create(*Env, *record.Node, string) (scene.Node, error)   { return nil, nil }
func (stubHandler) Export(*Env, scene.Node, *record.Node, Parts) error      { return nil }
func (stubHandler) Load(*Env, scene.Node, *record.Node) error               { return nil }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	for _, tag := range []string{"joint", "skinCluster", FallbackTransform, FallbackDeformer, FallbackDependency} {
		if err := r.Register(tag, stubHandler{id: tag}); err != nil {
			t.Fatalf("Register(%s): %v", tag, err)
		}
	}
	return r
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		caps     scene.Capability
		wantTag  string
		wantCode errors.Code
	}{
		{name: "Exact", tag: "skinCluster", caps: scene.CapDependency | scene.CapDeformer | scene.CapInfluenced, wantTag: "skinCluster"},
		{name: "ExactIgnoresCaps", tag: "joint", caps: 0, wantTag: "joint"},
		{name: "TransformLike", tag: "pointConstraint", caps: scene.CapDependency | scene.CapDAG | scene.CapTransform, wantTag: FallbackTransform},
		{name: "DeformerLike", tag: "deltaMush", caps: scene.CapDependency | scene.CapDeformer, wantTag: FallbackDeformer},
		{name: "Dependency", tag: "multiplyDivide", caps: scene.CapDependency, wantTag: FallbackDependency},
		{name: "Unknown", tag: "mystery", caps: 0, wantCode: errors.ErrCodeUnknownType},
	}

	r := newTestRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, h, err := r.Match(tt.tag, tt.caps)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Match() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if tag != tt.wantTag || h.(stubHandler).id != tt.wantTag {
				t.Errorf("Match() = %s, want %s", tag, tt.wantTag)
			}
		})
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	r := New()
	r.MustRegister(FallbackDependency, stubHandler{id: FallbackDependency})
	r.MustRegister(FallbackDeformer, stubHandler{id: FallbackDeformer})

	// No transform fallback registered: a transform-like tag falls through
	// to the generic dependency handler.
	tag, _, err := r.Match("pointConstraint", scene.CapDependency|scene.CapTransform)
	if err != nil || tag != FallbackDependency {
		t.Errorf("Match() = %q, %v", tag, err)
	}
}

func TestRegisterErrors(t *testing.T) {
	r := New()
	r.MustRegister("joint", stubHandler{})

	if err := r.Register("joint", stubHandler{}); !errors.Is(err, errors.ErrCodeDuplicateType) {
		t.Errorf("duplicate Register() error = %v", err)
	}
	if err := r.Register("", stubHandler{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty tag error = %v", err)
	}

	if r.Frozen() {
		t.Fatal("registry frozen before Resolve")
	}
	_, _ = r.Resolve("joint", 0)
	if !r.Frozen() {
		t.Fatal("registry not frozen after Resolve")
	}
	if err := r.Register("mesh", stubHandler{}); !errors.Is(err, errors.ErrCodeRegistryFrozen) {
		t.Errorf("Register() after Resolve error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister on a frozen registry should panic")
		}
	}()
	r.MustRegister("mesh", stubHandler{})
}

func TestConcurrentResolve(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := r.Resolve("joint", scene.CapTransform); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestTags(t *testing.T) {
	r := newTestRegistry(t)
	tags := r.Tags()
	if len(tags) != 5 || tags[0] != FallbackDependency {
		t.Errorf("Tags() = %v", tags)
	}
}
