package memory

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/matzehuels/rigstash/pkg/dag"
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// ListAttrs returns the attribute names of n in sorted order.
func (s *Scene) ListAttrs(n scene.Node) []string {
	nd, err := s.resolve(n)
	if err != nil {
		return nil
	}
	return slices.Sorted(maps.Keys(nd.attrs))
}

// AddAttr adds a dynamic attribute with a default value. The default's
// type fixes the attribute's type.
func (s *Scene) AddAttr(n scene.Node, attr string, def any) error {
	nd, err := s.resolve(n)
	if err != nil {
		return err
	}
	if _, ok := nd.attrs[attr]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "%s.%s already exists", nd.name, attr)
	}
	nd.attrs[attr] = cloneValue(def)
	return nil
}

// GetAttr returns the value of an attribute. A connected attribute yields
// the value of its source.
func (s *Scene) GetAttr(n scene.Node, attr string) (any, error) {
	nd, err := s.resolve(n)
	if err != nil {
		return nil, err
	}
	return s.value(nd, attr)
}

func (s *Scene) value(nd *node, attr string) (any, error) {
	def, ok := nd.attrs[attr]
	if !ok {
		return nil, errors.New(errors.ErrCodeAttributeNotFound, "%s has no attribute %q", nd.name, attr)
	}
	if c := s.incoming(nd.name, attr); c != nil {
		v, err := s.value(s.nodes[c.Src], c.SrcAttr)
		if err != nil {
			return nil, err
		}
		if cv, err := coerce(def, v); err == nil {
			return cv, nil
		}
		return v, nil
	}
	if v, ok := s.compute(nd, attr); ok {
		return v, nil
	}
	return cloneValue(def), nil
}

// compute evaluates output attributes of utility nodes.
func (s *Scene) compute(nd *node, attr string) (any, bool) {
	num := func(a string) float64 {
		v, _ := s.value(nd, a)
		f, _ := scene.AsFloat(v)
		return f
	}
	vec := func(a string) scene.Vec3 {
		v, _ := s.value(nd, a)
		p, _ := scene.AsVec3(v)
		return p
	}

	switch {
	case nd.typ == "addDoubleLinear" && attr == "output":
		return num("input1") + num("input2"), true
	case nd.typ == "multiplyDivide" && attr == "output":
		a, b := vec("input1"), vec("input2")
		var out scene.Vec3
		for i := range 3 {
			switch int(num("operation")) {
			case 2:
				if b[i] != 0 {
					out[i] = a[i] / b[i]
				}
			case 3:
				out[i] = math.Pow(a[i], b[i])
			case 0:
				out[i] = a[i]
			default:
				out[i] = a[i] * b[i]
			}
		}
		return out, true
	}
	return nil, false
}

// SetAttr sets an attribute, converting value to the attribute's type.
// Attributes driven by a connection cannot be set.
func (s *Scene) SetAttr(n scene.Node, attr string, value any) error {
	nd, err := s.resolve(n)
	if err != nil {
		return err
	}
	def, ok := nd.attrs[attr]
	if !ok {
		return errors.New(errors.ErrCodeAttributeNotFound, "%s has no attribute %q", nd.name, attr)
	}
	if c := s.incoming(nd.name, attr); c != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s.%s is driven by %s.%s", nd.name, attr, c.Src, c.SrcAttr)
	}
	v, err := coerce(def, value)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "set %s.%s", nd.name, attr)
	}
	nd.attrs[attr] = v

	if targets, ok := v.([]scene.BlendTarget); ok {
		for _, t := range targets {
			if _, ok := nd.attrs[scene.WeightAttr(t.Index)]; !ok {
				nd.attrs[scene.WeightAttr(t.Index)] = 0.0
			}
		}
	}
	return nil
}

// coerce converts v to the type of def. Attributes with an untyped default
// accept any value.
func coerce(def, v any) (any, error) {
	var (
		out any
		ok  bool
	)
	switch def.(type) {
	case float64:
		out, ok = scene.AsFloat(v)
	case int:
		out, ok = scene.AsInt(v)
	case bool:
		out, ok = scene.AsBool(v)
	case scene.Vec3:
		out, ok = scene.AsVec3(v)
	case string:
		out, ok = scene.AsString(v)
	case []string:
		out, ok = scene.AsStrings(v)
	case []float64:
		out, ok = scene.AsFloats(v)
	case []scene.BlendTarget:
		ts, err := decodeTargets(v)
		if err != nil {
			return nil, err
		}
		return ts, nil
	default:
		return cloneValue(v), nil
	}
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to %T", v, def)
	}
	return out, nil
}

func decodeTargets(v any) ([]scene.BlendTarget, error) {
	if ts, ok := v.([]scene.BlendTarget); ok {
		return cloneTargets(ts), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var ts []scene.BlendTarget
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("decode blend targets: %w", err)
	}
	return ts, nil
}

// =============================================================================
// Connections
// =============================================================================

// Connect wires src.srcAttr into dst.dstAttr. Re-making an existing
// connection is a no-op. It fails with CONNECTION_FAILED when an attribute
// is missing, the types are incompatible, the destination is already driven
// or the connection would close a cycle.
func (s *Scene) Connect(src scene.Node, srcAttr string, dst scene.Node, dstAttr string) error {
	sn, err := s.resolve(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, err, "connect source")
	}
	dn, err := s.resolve(dst)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, err, "connect destination")
	}
	label := fmt.Sprintf("%s.%s -> %s.%s", sn.name, srcAttr, dn.name, dstAttr)

	sv, ok := sn.attrs[srcAttr]
	if !ok {
		return errors.Wrap(errors.ErrCodeConnectionFailed,
			errors.New(errors.ErrCodeAttributeNotFound, "%s has no attribute %q", sn.name, srcAttr), "connect %s", label)
	}
	dv, ok := dn.attrs[dstAttr]
	if !ok {
		return errors.Wrap(errors.ErrCodeConnectionFailed,
			errors.New(errors.ErrCodeAttributeNotFound, "%s has no attribute %q", dn.name, dstAttr), "connect %s", label)
	}
	if ks, kd := kind(sv), kind(dv); ks != kd && ks != "any" && kd != "any" {
		return errors.New(errors.ErrCodeConnectionFailed, "connect %s: type mismatch (%s to %s)", label, ks, kd)
	}

	if c := s.incoming(dn.name, dstAttr); c != nil {
		if c.Src == sn.name && c.SrcAttr == srcAttr {
			return nil
		}
		return errors.New(errors.ErrCodeConnectionFailed, "connect %s: destination already driven by %s.%s", label, c.Src, c.SrcAttr)
	}
	if s.createsCycle(sn.name, dn.name) {
		return errors.New(errors.ErrCodeConnectionFailed, "connect %s: would create a cycle", label)
	}

	s.conns = append(s.conns, scene.Connection{Src: sn.name, SrcAttr: srcAttr, Dst: dn.name, DstAttr: dstAttr})
	return nil
}

// Disconnect removes the connection driving dst.dstAttr, if any.
func (s *Scene) Disconnect(dst scene.Node, dstAttr string) error {
	dn, err := s.resolve(dst)
	if err != nil {
		return err
	}
	s.conns = slices.DeleteFunc(s.conns, func(c scene.Connection) bool {
		return c.Dst == dn.name && c.DstAttr == dstAttr
	})
	return nil
}

// ListConnections returns the connections driving attributes of n, in the
// order they were made.
func (s *Scene) ListConnections(n scene.Node) []scene.Connection {
	nd, err := s.resolve(n)
	if err != nil {
		return nil
	}
	var out []scene.Connection
	for _, c := range s.conns {
		if c.Dst == nd.name {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scene) incoming(name, attr string) *scene.Connection {
	for i := range s.conns {
		if s.conns[i].Dst == name && s.conns[i].DstAttr == attr {
			return &s.conns[i]
		}
	}
	return nil
}

// createsCycle reports whether an edge src -> dst would close a cycle in
// the node-level connection graph.
func (s *Scene) createsCycle(src, dst string) bool {
	if src == dst {
		return true
	}
	g := dag.New()
	for _, c := range s.conns {
		_ = g.EnsureNode(c.Src)
		_ = g.EnsureNode(c.Dst)
		_ = g.AddEdge(dag.Edge{From: c.Src, To: c.Dst})
	}
	_ = g.EnsureNode(src)
	_ = g.EnsureNode(dst)
	return g.Reachable(dst, src)
}

func kind(v any) string {
	switch v.(type) {
	case float64, int, bool:
		return "number"
	case scene.Vec3:
		return "vector"
	case string:
		return "string"
	case []string:
		return "string list"
	case []float64:
		return "number list"
	}
	return "any"
}
