package engine

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/influence"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// LoadOptions controls Load and LoadDocument.
type LoadOptions struct {
	// Recreate deletes existing nodes and creates them again.
	Recreate bool
	// NameMap and NamespaceMap rename recorded nodes; see ResolveName.
	NameMap      map[string]string
	NamespaceMap *NamespaceMap
	// SkipConnections leaves recorded connections unapplied.
	SkipConnections bool
	// SkipPayload leaves recorded payloads unapplied.
	SkipPayload bool
}

// LoadReport describes a load.
type LoadReport struct {
	Created   []string
	Reused    []string
	Recreated []string

	// Connected counts connections made; failed ones are warnings.
	Connected int
	// Remapped holds the influence remap of every skin-like node whose
	// influence list differed from the record.
	Remapped map[string]*influence.Result

	Warnings []registry.Warning

	order []string
}

// Nodes returns the created, recreated and reused node names in the order
// they were loaded.
func (r *LoadReport) Nodes() []string {
	return slices.Clone(r.order)
}

// loader carries the state of one load operation.
type loader struct {
	e        *Engine
	opts     LoadOptions
	resolver *Resolver
	env      *registry.Env
	report   *LoadReport
}

func (e *Engine) newLoader(opts LoadOptions) *loader {
	r := NewResolver(opts.NameMap, opts.NamespaceMap)
	return &loader{
		e:        e,
		opts:     opts,
		resolver: r,
		env:      e.env(r),
		report:   &LoadReport{Remapped: make(map[string]*influence.Result)},
	}
}

// Load reconstructs or reuses the node of one record, then applies its
// connections and its payload.
func (e *Engine) Load(ctx context.Context, rec *record.Node, opts LoadOptions) (n scene.Node, report *LoadReport, err error) {
	start := time.Now()
	defer func() {
		observability.Engine().OnLoad(ctx, report.created(), report.warnings(), time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, nil, err
	}
	l := e.newLoader(opts)
	n, h, err := l.create(rec)
	if err != nil {
		return nil, l.finish(), err
	}
	if !opts.SkipConnections {
		l.connect(rec, n)
	}
	if !opts.SkipPayload {
		l.payload(rec, n, h)
	}
	return n, l.finish(), nil
}

// LoadDocument loads every record of doc in three phases: all nodes are
// created or reused in document order, then all connections are made,
// then all payloads applied. A creation failure stops the load; nodes
// created before it are listed in the report and left in the scene.
func (e *Engine) LoadDocument(ctx context.Context, doc *record.Document, opts LoadOptions) (report *LoadReport, err error) {
	start := time.Now()
	defer func() {
		observability.Engine().OnLoad(ctx, report.created(), report.warnings(), time.Since(start), err)
	}()

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	l := e.newLoader(opts)

	live := make([]scene.Node, len(doc.Nodes))
	handlers := make([]registry.Handler, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return l.finish(), err
		}
		n, h, err := l.create(rec)
		if err != nil {
			return l.finish(), err
		}
		live[i], handlers[i] = n, h
	}
	e.Logger.Info("created nodes",
		"created", len(l.report.Created)+len(l.report.Recreated),
		"reused", len(l.report.Reused),
		"duration", time.Since(start))

	if !opts.SkipConnections {
		for i, rec := range doc.Nodes {
			l.connect(rec, live[i])
		}
		e.Logger.Info("applied connections", "connections", l.report.Connected, "duration", time.Since(start))
	}
	if !opts.SkipPayload {
		for i, rec := range doc.Nodes {
			l.payload(rec, live[i], handlers[i])
		}
		e.Logger.Info("applied payloads", "nodes", len(doc.Nodes), "duration", time.Since(start))
	}
	return l.finish(), nil
}

func (r *LoadReport) created() int {
	if r == nil {
		return 0
	}
	return len(r.Created) + len(r.Recreated)
}

func (r *LoadReport) warnings() int {
	if r == nil {
		return 0
	}
	return len(r.Warnings)
}

func (l *loader) finish() *LoadReport {
	l.report.Warnings = l.env.Warnings
	return l.report
}

// create resolves the record's target node and creates, reuses or
// recreates it.
func (l *loader) create(rec *record.Node) (scene.Node, registry.Handler, error) {
	s := l.e.Scene
	name := l.resolver.Resolve(rec.Name)
	h, err := l.e.Registry.Resolve(rec.Type, s.TypeCaps(rec.Type))
	if err != nil {
		return nil, nil, errors.Wrap(errors.GetCode(err), err, "load %s", name)
	}

	action, err := Decide(s.Exists(name), l.opts.Recreate, rec.Creation != nil)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeMissingCreationData, err, "load %s", name)
	}

	if action == ActionReuse {
		n, err := s.Lookup(name)
		if err != nil {
			return nil, nil, err
		}
		if n.Type() != rec.Type {
			l.env.Warn(name, "reusing "+n.Type()+" node for a "+rec.Type+" record", nil)
		}
		l.report.Reused = append(l.report.Reused, name)
		l.report.order = append(l.report.order, name)
		return n, h, nil
	}

	if action == ActionRecreate {
		old, err := s.Lookup(name)
		if err == nil {
			err = s.Delete(old)
		}
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeCreationFailed, err, "delete %s for recreation", name)
		}
	}
	n, err := h.Create(l.env, rec, name)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeMissingCreationData {
			return nil, nil, err
		}
		return nil, nil, errors.Wrap(errors.ErrCodeCreationFailed, err, "load %s", name)
	}
	if n.Type() != rec.Type {
		return nil, nil, errors.New(errors.ErrCodeCreationFailed, "load %s: created %s, record is %s", name, n.Type(), rec.Type)
	}

	l.e.Logger.Debug("created node", "node", name, "type", rec.Type, "action", action)
	if action == ActionRecreate {
		l.report.Recreated = append(l.report.Recreated, name)
	} else {
		l.report.Created = append(l.report.Created, name)
	}
	l.report.order = append(l.report.order, name)
	return n, h, nil
}

// connect applies the recorded connections of rec. Both endpoints are
// resolved with the load's rules; every failure is a warning.
func (l *loader) connect(rec *record.Node, n scene.Node) {
	s := l.e.Scene
	for _, c := range rec.Connections {
		src, err := s.Lookup(l.resolver.Resolve(c.SrcNode))
		if err != nil {
			l.env.Warn(n.Name(), "skipped connection "+c.String(), err)
			continue
		}
		dst := n
		if name := l.resolver.Resolve(c.DstNode); name != n.Name() {
			if dst, err = s.Lookup(name); err != nil {
				l.env.Warn(n.Name(), "skipped connection "+c.String(), err)
				continue
			}
		}
		if err := s.Connect(src, c.SrcAttr, dst, c.DstAttr); err != nil {
			l.env.Warn(n.Name(), "skipped connection "+c.String(), err)
			continue
		}
		l.report.Connected++
	}
}

// payload applies the payload of rec. Handlers keyed by influence index
// get the influence list remapped first. A failed remap skips the payload
// of that record.
func (l *loader) payload(rec *record.Node, n scene.Node, h registry.Handler) {
	if rec.Payload.Empty() {
		return
	}
	il, indexed := h.(registry.IndexedLoader)
	if !indexed || rec.Influences == nil {
		if err := h.Load(l.env, n, rec); err != nil {
			l.env.Warn(n.Name(), "skipped payload", err)
		}
		return
	}

	m, res, err := influence.Remap(l.e.Scene, n, rec.Influences, influence.Options{Resolve: l.resolver.Resolve})
	if err != nil {
		l.env.Warn(n.Name(), "skipped payload", err)
		return
	}
	if !res.Identity {
		l.report.Remapped[n.Name()] = res
		for _, p := range res.Placeholders {
			l.env.Warn(n.Name(), "created placeholder influence "+p, nil)
		}
	}
	if err := il.LoadIndexed(l.env, n, rec, m); err != nil {
		l.env.Warn(n.Name(), "skipped payload", err)
	}
}
