package record

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/rigstash/pkg/errors"
)

// Node is the record of one scene node.
type Node struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Creation    *Creation    `json:"creation,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
	Payload
}

// Connection is an incoming attribute wire. Node references are names
// that must be resolved before lookup.
type Connection struct {
	SrcNode string `json:"src_node"`
	SrcAttr string `json:"src_attr"`
	DstNode string `json:"dst_node"`
	DstAttr string `json:"dst_attr"`
}

// String renders the connection as "src.attr -> dst.attr".
func (c Connection) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.SrcNode, c.SrcAttr, c.DstNode, c.DstAttr)
}

// Payload carries the data a handler applies after creation and
// connections.
type Payload struct {
	Attributes map[string]any `json:"attributes,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
	Influences *InfluenceList `json:"influences,omitempty"`
	Weights    WeightMatrix   `json:"weights,omitempty"`
}

// Empty reports whether the payload carries no data.
func (p *Payload) Empty() bool {
	return len(p.Attributes) == 0 && len(p.Additional) == 0 && p.Influences == nil && len(p.Weights) == 0
}

// SetAttr records an attribute value.
func (p *Payload) SetAttr(name string, value any) {
	if p.Attributes == nil {
		p.Attributes = make(map[string]any)
	}
	p.Attributes[name] = value
}

// AttrNames returns the recorded attribute names in sorted order.
func (p *Payload) AttrNames() []string {
	return slices.Sorted(maps.Keys(p.Attributes))
}

// Set stores a type-specific value under key.
func (p *Payload) Set(key string, value any) {
	if p.Additional == nil {
		p.Additional = make(map[string]any)
	}
	p.Additional[key] = value
}

// Has reports whether key is present in the additional data.
func (p *Payload) Has(key string) bool {
	_, ok := p.Additional[key]
	return ok
}

// Decode copies the value stored under key into dst. The value may be a
// typed Go value or the generic form produced by JSON decoding; both
// decode identically. A missing key leaves dst untouched and returns false.
func (p *Payload) Decode(key string, dst any) (bool, error) {
	v, ok := p.Additional[key]
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return true, errors.Wrap(errors.ErrCodeInvalidRecord, err, "encode additional %q", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, errors.Wrap(errors.ErrCodeInvalidRecord, err, "decode additional %q", key)
	}
	return true, nil
}

// Validate checks the structural invariants of a record.
func (n *Node) Validate() error {
	if n.Type == "" {
		return errors.New(errors.ErrCodeInvalidRecord, "record %q has no type", n.Name)
	}
	if err := errors.ValidateNodeName(n.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRecord, err, "record of type %s", n.Type)
	}
	for _, c := range n.Connections {
		if c.SrcNode == "" || c.SrcAttr == "" || c.DstNode == "" || c.DstAttr == "" {
			return errors.New(errors.ErrCodeInvalidRecord, "record %q has an incomplete connection %s", n.Name, c)
		}
	}
	if n.Influences != nil {
		if err := n.Influences.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRecord, err, "record %q", n.Name)
		}
		if len(n.Weights) > 0 {
			if _, err := n.Weights.Components(n.Influences.Len()); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidRecord, err, "record %q", n.Name)
			}
		}
	} else if len(n.Weights) > 0 {
		return errors.New(errors.ErrCodeInvalidRecord, "record %q has weights but no influences", n.Name)
	}
	return nil
}

// Clone returns a deep copy of the record through its wire form.
func (n *Node) Clone() (*Node, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var out Node
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
