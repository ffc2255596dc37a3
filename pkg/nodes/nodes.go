package nodes

import (
	"github.com/matzehuels/rigstash/pkg/registry"
)

// AnimCurveTags lists the animation curve types handled by [AnimCurve].
var AnimCurveTags = []string{"animCurveTL", "animCurveTA", "animCurveTU", "animCurveUL", "animCurveUA", "animCurveUU"}

// Register installs the built-in handlers on r.
func Register(r *registry.Registry) error {
	var (
		transform = Transform{}
		filter    = GeometryFilter{}
		curve     = AnimCurve{Replace: true}
	)
	handlers := map[string]registry.Handler{
		registry.FallbackDependency: Dependency{},
		registry.FallbackTransform:  transform,
		registry.FallbackDeformer:   filter,
		"joint":                     transform,
		"mesh":                      Mesh{},
		"nurbsCurve":                NurbsCurve{},
		"cluster":                   filter,
		"lattice":                   filter,
		"wrap":                      filter,
		"skinCluster":               SkinCluster{},
		"blendShape":                BlendShape{},
		"objectSet":                 ObjectSet{},
	}
	for _, tag := range AnimCurveTags {
		handlers[tag] = curve
	}

	for tag, h := range handlers {
		if err := r.Register(tag, h); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry with the built-in handlers installed.
func NewRegistry() *registry.Registry {
	r := registry.New()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}
