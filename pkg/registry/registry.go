package registry

import (
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Fallback tags used when a type tag has no handler of its own.
const (
	FallbackTransform  = "transform"
	FallbackDeformer   = "geometryFilter"
	FallbackDependency = "dependencyNode"
)

// Registry maps type tags to handlers. The zero value is not usable; use New.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler for tag. It fails with REGISTRY_FROZEN after the
// first Resolve and with DUPLICATE_TYPE when tag is already registered.
func (r *Registry) Register(tag string, h Handler) error {
	if tag == "" || h == nil {
		return errors.New(errors.ErrCodeInvalidInput, "register: empty tag or nil handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errors.New(errors.ErrCodeRegistryFrozen, "register %q: registry is frozen", tag)
	}
	if _, ok := r.handlers[tag]; ok {
		return errors.New(errors.ErrCodeDuplicateType, "register %q: already registered", tag)
	}
	r.handlers[tag] = h
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tag string, h Handler) {
	if err := r.Register(tag, h); err != nil {
		panic(err)
	}
}

// Resolve returns the handler for tag, falling back by capability. The
// first call freezes the registry.
func (r *Registry) Resolve(tag string, caps scene.Capability) (Handler, error) {
	_, h, err := r.Match(tag, caps)
	return h, err
}

// Match is Resolve that also returns the tag whose handler was chosen.
func (r *Registry) Match(tag string, caps scene.Capability) (string, Handler, error) {
	r.freeze()
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[tag]; ok {
		return tag, h, nil
	}
	for _, fb := range fallbacks(caps) {
		if h, ok := r.handlers[fb]; ok {
			return fb, h, nil
		}
	}
	return "", nil, errors.New(errors.ErrCodeUnknownType, "no handler for node type %q", tag)
}

func (r *Registry) freeze() {
	r.mu.RLock()
	frozen := r.frozen
	r.mu.RUnlock()
	if frozen {
		return
	}
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// fallbacks lists the fallback tags that apply to caps, most specific first.
func fallbacks(caps scene.Capability) []string {
	var out []string
	if caps.Has(scene.CapTransform) {
		out = append(out, FallbackTransform)
	}
	if caps.Has(scene.CapDeformer) {
		out = append(out, FallbackDeformer)
	}
	if caps.Has(scene.CapDependency) {
		out = append(out, FallbackDependency)
	}
	return out
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// Frozen reports whether Resolve has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
