// Package scene defines the boundary between rigstash and a live scene graph.
//
// A live scene is owned by a host application (a DCC). rigstash never
// reimplements it; it reads and mutates it only through the [Scene]
// interface. The in-memory implementation in [scene/memory] backs tests and
// the command-line tools.
//
// # Nodes and Capabilities
//
// Every node has a type tag (for example "skinCluster") and a set of
// [Capability] flags describing what the host knows the node can do. The
// registry uses capabilities to choose a handler when no handler is
// registered for the exact tag:
//
//	caps := s.TypeCaps("pointConstraint")
//	caps.Has(scene.CapTransform) // true: handled like a transform
//
// # Errors
//
// Implementations report failures as *errors.Error values from pkg/errors
// with codes CREATION_FAILED, CONNECTION_FAILED, ATTRIBUTE_NOT_FOUND and
// NOT_FOUND so callers can decide which failures are fatal.
//
// # Concurrency
//
// Scenes are driven from a single control thread. Implementations need not
// be safe for concurrent use and callers must not share one across
// goroutines during an operation.
package scene

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is a point or offset in object space.
type Vec3 = mgl64.Vec3

// Capability describes what kind of node a type tag denotes.
type Capability uint8

const (
	// CapDependency is set for every node the host can create.
	CapDependency Capability = 1 << iota
	// CapDAG marks nodes that live in the transform hierarchy.
	CapDAG
	// CapTransform marks DAG nodes carrying a local transform.
	CapTransform
	// CapShape marks geometry shapes (meshes).
	CapShape
	// CapDeformer marks geometry filters that deform driven geometry.
	CapDeformer
	// CapInfluenced marks deformers whose weights are keyed by influence objects.
	CapInfluenced
)

// Has reports whether all flags in c are set.
func (caps Capability) Has(c Capability) bool { return caps&c == c }

// Node is a handle to a live scene node. Handles are only valid until the
// node is deleted.
type Node interface {
	Name() string
	Type() string
}

// Args carries creation arguments to [Scene.Create].
type Args struct {
	Name       string
	Positional []any
	Named      map[string]any
}

// Influence is one entry of a deformer's influence list.
type Influence struct {
	Name  string
	Index int
}

// Connection is a directed wire between two attributes.
type Connection struct {
	Src     string
	SrcAttr string
	Dst     string
	DstAttr string
}

// Scene is the live graph consumed by the engine.
type Scene interface {
	// Exists reports whether a node with the given name exists.
	Exists(name string) bool
	// Lookup returns the node with the given name or a NOT_FOUND error.
	Lookup(name string) (Node, error)
	// TypeCaps returns the capabilities of a type tag, or zero when the host
	// cannot create nodes of that type.
	TypeCaps(typeTag string) Capability
	// Caps returns the capabilities of a live node.
	Caps(n Node) Capability
	// Parent returns the name of the DAG parent of n, or "" at the root.
	Parent(n Node) string

	Create(typeTag string, args Args) (Node, error)
	Delete(n Node) error

	ListAttrs(n Node) []string
	GetAttr(n Node, attr string) (any, error)
	SetAttr(n Node, attr string, value any) error

	Connect(src Node, srcAttr string, dst Node, dstAttr string) error
	// ListConnections returns the connections whose destination is n.
	ListConnections(n Node) []Connection

	ListInfluences(deformer Node) ([]Influence, error)
	AddInfluence(deformer, obj Node) (int, error)
	RemoveInfluence(deformer, obj Node) error

	// ComponentCount returns the number of weighted components of a deformer.
	ComponentCount(deformer Node) (int, error)
	Weight(deformer Node, component, influenceIndex int) (float64, error)
	SetWeight(deformer Node, component, influenceIndex int, w float64) error
	// ClearWeights removes every weight entry of the deformer.
	ClearWeights(deformer Node) error

	EvaluatePoints(mesh Node) ([]Vec3, error)
	SetPoints(mesh Node, points []Vec3) error
	// Faces returns the polygon vertex lists of a shape.
	Faces(mesh Node) ([][]int, error)

	// DeformedGeometry returns the shapes driven by a deformer, in order.
	DeformedGeometry(deformer Node) ([]Node, error)
	// IntermediateSibling returns the pre-deformation shape of a deformed
	// shape, or nil when the shape is not deformed.
	IntermediateSibling(shape Node) (Node, error)
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Vec3) float64 { return a.Sub(b).Len() }
