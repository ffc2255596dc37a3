package engine

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/rigstash/pkg/nodes"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Engine exports and loads records against one scene.
//
// An Engine holds no state between calls besides its collaborators. Calls
// must not overlap: the scene is driven from a single goroutine.
type Engine struct {
	Scene      scene.Scene
	Registry   *registry.Registry
	Logger     *log.Logger
	Normalizer Normalizer
}

// New creates an engine for s.
// If reg is nil, a registry with the built-in handlers is used.
// If logger is nil, the default logger is used.
func New(s scene.Scene, reg *registry.Registry, logger *log.Logger) *Engine {
	if reg == nil {
		reg = nodes.NewRegistry()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Scene:      s,
		Registry:   reg,
		Logger:     logger,
		Normalizer: ProportionalNormalizer{},
	}
}

func (e *Engine) env(r *Resolver) *registry.Env {
	env := &registry.Env{Scene: e.Scene, Logger: e.Logger}
	if r != nil && !r.Identity() {
		env.Resolve = r.Resolve
	}
	return env
}

// handler returns the handler for a live node.
func (e *Engine) handler(n scene.Node) (registry.Handler, error) {
	return e.Registry.Resolve(n.Type(), e.Scene.Caps(n))
}
