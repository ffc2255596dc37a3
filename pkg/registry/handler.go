package registry

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Parts selects the record tiers a handler exports. Connections are
// exported by the engine for every node kind alike.
type Parts struct {
	Creation bool
	Payload  bool
}

// Handler creates, exports and loads the nodes of one family of types.
type Handler interface {
	// Create creates a node named name from rec's creation data. Node names
	// inside the creation data are recorded names; resolve them with
	// env.Name.
	Create(env *Env, rec *record.Node, name string) (scene.Node, error)

	// Export fills the selected tiers of rec from n.
	Export(env *Env, n scene.Node, rec *record.Node, parts Parts) error

	// Load applies rec's payload to n. Failures on single attributes or
	// weights are reported with env.Warn and do not fail the load.
	Load(env *Env, n scene.Node, rec *record.Node) error
}

// PreExporter is implemented by handlers whose payload is only reliable
// after the host has been forced to evaluate the node. PreExport must be
// idempotent and leave every attribute it touches as it found it.
type PreExporter interface {
	PreExport(env *Env, n scene.Node) error
}

// IndexedLoader is implemented by handlers whose payload is keyed by
// influence index. The engine remaps influences first and passes the
// resulting map; an empty map means the recorded indices are live.
type IndexedLoader interface {
	LoadIndexed(env *Env, n scene.Node, rec *record.Node, m record.IndexMap) error
}

// Warning is a recovered failure reported by a handler or the engine.
type Warning struct {
	Node    string
	Message string
	Err     error
}

// Env is the environment of one export or load operation.
type Env struct {
	Scene  scene.Scene
	Logger *log.Logger

	// Resolve maps a recorded node name to its live name. Nil means names
	// are used as recorded.
	Resolve func(string) string

	Warnings []Warning
}

// Name resolves a recorded node name.
func (e *Env) Name(recorded string) string {
	if e.Resolve == nil || recorded == "" {
		return recorded
	}
	return e.Resolve(recorded)
}

// Names resolves a list of recorded node names.
func (e *Env) Names(recorded []string) []string {
	out := make([]string, len(recorded))
	for i, n := range recorded {
		out[i] = e.Name(n)
	}
	return out
}

// Warn records a recovered failure and logs it.
func (e *Env) Warn(node, msg string, err error) {
	e.Warnings = append(e.Warnings, Warning{Node: node, Message: msg, Err: err})
	if e.Logger != nil {
		if err != nil {
			e.Logger.Warn(msg, "node", node, "err", err)
		} else {
			e.Logger.Warn(msg, "node", node)
		}
	}
}
