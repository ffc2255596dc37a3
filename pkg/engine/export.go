package engine

import (
	"context"
	"time"

	"github.com/matzehuels/rigstash/pkg/dag"
	"github.com/matzehuels/rigstash/pkg/dag/transform"
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// ExportOptions selects the record tiers to export.
type ExportOptions struct {
	Creation    bool
	Connections bool
	Payload     bool
}

// ExportAll exports every tier.
var ExportAll = ExportOptions{Creation: true, Connections: true, Payload: true}

// Export records one live node.
//
// Payload export is preceded by the handler's pre-export step, if it has
// one. Connections are the node's incoming connections; attributes they
// drive are not recorded as values.
func (e *Engine) Export(ctx context.Context, n scene.Node, opts ExportOptions) (rec *record.Node, err error) {
	start := time.Now()
	defer func() {
		observability.Engine().OnExport(ctx, 1, time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.export(n, opts)
}

func (e *Engine) export(n scene.Node, opts ExportOptions) (*record.Node, error) {
	h, err := e.handler(n)
	if err != nil {
		return nil, err
	}
	env := e.env(nil)

	if pre, ok := h.(registry.PreExporter); ok && opts.Payload {
		if err := pre.PreExport(env, n); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "pre-export %s", n.Name())
		}
	}

	rec := &record.Node{Type: n.Type(), Name: n.Name()}
	if err := h.Export(env, n, rec, registry.Parts{Creation: opts.Creation, Payload: opts.Payload}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "export %s", n.Name())
	}
	if opts.Connections {
		for _, c := range e.Scene.ListConnections(n) {
			rec.Connections = append(rec.Connections, record.Connection{
				SrcNode: c.Src,
				SrcAttr: c.SrcAttr,
				DstNode: c.Dst,
				DstAttr: c.DstAttr,
			})
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ExportNames records the named nodes as a document in creation-safe
// order.
func (e *Engine) ExportNames(ctx context.Context, opts ExportOptions, names ...string) (doc *record.Document, err error) {
	start := time.Now()
	defer func() {
		observability.Engine().OnExport(ctx, len(names), time.Since(start), err)
	}()

	doc = &record.Document{Nodes: make([]*record.Node, 0, len(names))}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := e.Scene.Lookup(name)
		if err != nil {
			return nil, err
		}
		rec, err := e.export(n, opts)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	if cut := Order(doc); len(cut) > 0 {
		e.Logger.Warn("creation dependencies form a cycle", "ignored", len(cut))
	}

	e.Logger.Info("exported records", "nodes", len(doc.Nodes), "duration", time.Since(start))
	return doc, nil
}

// =============================================================================
// Document Order
// =============================================================================

// Order sorts doc so that every record comes after the records its
// creation data references. A record moves only when a dependency forces
// it: among the records whose dependencies are placed, the earliest in
// doc goes next. Dependencies that form a cycle cannot be honoured; they
// are returned.
func Order(doc *record.Document) []dag.Edge {
	g := DependencyGraph(doc)
	removed := transform.BreakCycles(g)
	ids, err := g.TopoSort()
	if err != nil {
		// BreakCycles leaves g acyclic.
		return removed
	}

	pos := dag.PosMap(ids)
	sorted := make([]*record.Node, len(doc.Nodes))
	for _, rec := range doc.Nodes {
		sorted[pos[rec.Name]] = rec
	}
	doc.Nodes = sorted
	return removed
}

// DependencyGraph returns the creation dependencies between the records
// of doc. An edge runs from a referenced record to the record whose
// creation data names it.
func DependencyGraph(doc *record.Document) *dag.DAG {
	g := dag.New()
	for _, rec := range doc.Nodes {
		_ = g.AddNode(dag.Node{ID: rec.Name, Meta: dag.Metadata{"type": rec.Type}})
	}
	for _, rec := range doc.Nodes {
		for _, ref := range CreationRefs(rec) {
			if ref == rec.Name {
				continue
			}
			if _, ok := g.Node(ref); ok {
				_ = g.AddEdge(dag.Edge{From: ref, To: rec.Name})
			}
		}
	}
	return g
}

// CreationRefs returns every string in rec's creation data. Handlers
// reference other nodes only by name, so this is a superset of the nodes
// the creation depends on.
func CreationRefs(rec *record.Node) []string {
	if rec.Creation == nil {
		return nil
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []string:
			out = append(out, t...)
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(rec.Creation.Args)
	for _, k := range rec.Creation.Keys() {
		walk(rec.Creation.Kwargs[k])
	}
	return out
}
