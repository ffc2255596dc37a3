package nodes

import (
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Dependency handles plain dependency nodes. It needs no creation
// arguments and records every attribute that is not driven.
type Dependency struct{}

var _ registry.Handler = Dependency{}

// Create creates a node of the record's type.
func (Dependency) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	return create(env, rec.Type, rec.Creation.SceneArgs(name))
}

// Export records the node's attributes.
func (Dependency) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if parts.Creation {
		rec.Creation = record.NewCreation()
	}
	if parts.Payload {
		registry.ExportAttrs(env, n, rec)
	}
	return nil
}

// Load applies the recorded attributes.
func (Dependency) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	registry.LoadAttrs(env, n, rec)
	return nil
}

// create calls the host and tags its failures as creation failures.
func create(env *registry.Env, typeTag string, args scene.Args) (scene.Node, error) {
	n, err := env.Scene.Create(typeTag, args)
	if err != nil {
		if errors.Is(err, errors.ErrCodeCreationFailed) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeCreationFailed, err, "create %s %q", typeTag, args.Name)
	}
	return n, nil
}
