package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/rigstash/pkg/scene"
)

type snapshot struct {
	Nodes       []snapshotNode `json:"nodes"`
	Connections []snapshotConn `json:"connections,omitempty"`
}

type snapshotNode struct {
	Name       string                  `json:"name"`
	Type       string                  `json:"type"`
	Parent     string                  `json:"parent,omitempty"`
	Attrs      map[string]any          `json:"attrs,omitempty"`
	Points     []scene.Vec3            `json:"points,omitempty"`
	Faces      [][]int                 `json:"faces,omitempty"`
	Orig       string                  `json:"orig,omitempty"`
	History    []string                `json:"history,omitempty"`
	Driven     []string                `json:"driven,omitempty"`
	Influences []snapshotInfluence     `json:"influences,omitempty"`
	Weights    map[int]map[int]float64 `json:"weights,omitempty"`
}

type snapshotInfluence struct {
	Name    string     `json:"name"`
	Index   int        `json:"index"`
	BindPre mgl64.Mat4 `json:"bind_pre_matrix"`
}

type snapshotConn struct {
	Src     string `json:"src"`
	SrcAttr string `json:"src_attr"`
	Dst     string `json:"dst"`
	DstAttr string `json:"dst_attr"`
}

// Save writes the scene as a JSON snapshot.
func (s *Scene) Save(w io.Writer) error {
	snap := snapshot{Nodes: make([]snapshotNode, 0, len(s.order))}
	for _, name := range s.order {
		n := s.nodes[name]
		sn := snapshotNode{
			Name:    n.name,
			Type:    n.typ,
			Parent:  n.parent,
			Attrs:   n.attrs,
			Points:  n.points,
			Faces:   n.faces,
			Orig:    n.orig,
			History: n.history,
			Driven:  n.driven,
			Weights: n.weights,
		}
		for _, inf := range n.influences {
			sn.Influences = append(sn.Influences, snapshotInfluence{Name: inf.name, Index: inf.index, BindPre: inf.bindPre})
		}
		snap.Nodes = append(snap.Nodes, sn)
	}
	for _, c := range s.conns {
		snap.Connections = append(snap.Connections, snapshotConn{Src: c.Src, SrcAttr: c.SrcAttr, Dst: c.Dst, DstAttr: c.DstAttr})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	return nil
}

// SaveFile writes the scene snapshot to path atomically.
func (s *Scene) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scene-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if err := s.Save(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Load reads a scene snapshot written by Save.
func Load(r io.Reader) (*Scene, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}

	s := New()
	for _, sn := range snap.Nodes {
		ti, ok := s.types[sn.Type]
		if !ok {
			return nil, fmt.Errorf("node %q: unknown type %q", sn.Name, sn.Type)
		}
		if s.Exists(sn.Name) {
			return nil, fmt.Errorf("node %q listed twice", sn.Name)
		}
		n := &node{
			name:    sn.Name,
			typ:     sn.Type,
			caps:    ti.caps,
			parent:  sn.Parent,
			attrs:   cloneAttrs(ti.attrs),
			points:  sn.Points,
			faces:   sn.Faces,
			orig:    sn.Orig,
			history: sn.History,
			driven:  sn.Driven,
			weights: sn.Weights,
		}
		for k, v := range sn.Attrs {
			def, known := n.attrs[k]
			switch {
			case known:
				cv, err := coerce(def, v)
				if err != nil {
					return nil, fmt.Errorf("node %q attribute %q: %w", sn.Name, k, err)
				}
				n.attrs[k] = cv
			case strings.HasPrefix(k, "weight["):
				f, _ := scene.AsFloat(v)
				n.attrs[k] = f
			default:
				n.attrs[k] = v
			}
		}
		for _, inf := range sn.Influences {
			n.influences = append(n.influences, influence{name: inf.Name, index: inf.Index, bindPre: inf.BindPre})
		}
		if n.caps.Has(scene.CapInfluenced) && n.weights == nil {
			n.weights = make(map[int]map[int]float64)
		}
		s.add(n)
	}

	for _, name := range s.order {
		n := s.nodes[name]
		refs := append([]string{n.parent, n.orig}, n.history...)
		refs = append(refs, n.driven...)
		for _, inf := range n.influences {
			refs = append(refs, inf.name)
		}
		for _, ref := range refs {
			if ref != "" && !s.Exists(ref) {
				return nil, fmt.Errorf("node %q references missing node %q", name, ref)
			}
		}
	}

	for _, c := range snap.Connections {
		if !s.Exists(c.Src) || !s.Exists(c.Dst) {
			return nil, fmt.Errorf("connection %s.%s -> %s.%s references a missing node", c.Src, c.SrcAttr, c.Dst, c.DstAttr)
		}
		s.conns = append(s.conns, scene.Connection{Src: c.Src, SrcAttr: c.SrcAttr, Dst: c.Dst, DstAttr: c.DstAttr})
	}
	return s, nil
}

// LoadFile reads a scene snapshot file.
func LoadFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
