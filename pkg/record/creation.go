package record

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/rigstash/pkg/scene"
)

// argsKey holds positional arguments in the wire form of a Creation.
const argsKey = "_args"

// Creation holds the arguments needed to recreate a node: ordered
// positional arguments plus named arguments. The wire form is one object
// whose "_args" key lists the positional arguments:
//
//	{"_args": ["root_jnt"], "geometry": ["bodyShape"], "toSelectedBones": true}
type Creation struct {
	Args   []any
	Kwargs map[string]any
}

// NewCreation returns an empty creation record.
func NewCreation() *Creation {
	return &Creation{Kwargs: make(map[string]any)}
}

// Set stores a named argument.
func (c *Creation) Set(key string, value any) *Creation {
	if c.Kwargs == nil {
		c.Kwargs = make(map[string]any)
	}
	c.Kwargs[key] = value
	return c
}

// Append adds positional arguments.
func (c *Creation) Append(args ...any) *Creation {
	c.Args = append(c.Args, args...)
	return c
}

// Has reports whether a named argument is present.
func (c *Creation) Has(key string) bool {
	_, ok := c.Kwargs[key]
	return ok
}

// Keys returns the named argument keys in sorted order.
func (c *Creation) Keys() []string {
	return slices.Sorted(maps.Keys(c.Kwargs))
}

// String returns a named string argument or "".
func (c *Creation) String(key string) string {
	s, _ := scene.AsString(c.Kwargs[key])
	return s
}

// Strings returns a named string-list argument.
func (c *Creation) Strings(key string) []string {
	s, _ := scene.AsStrings(c.Kwargs[key])
	return s
}

// Bool returns a named boolean argument.
func (c *Creation) Bool(key string) bool {
	b, _ := scene.AsBool(c.Kwargs[key])
	return b
}

// Float returns a named numeric argument or 0.
func (c *Creation) Float(key string) float64 {
	f, _ := scene.AsFloat(c.Kwargs[key])
	return f
}

// Floats returns a named numeric-list argument.
func (c *Creation) Floats(key string) []float64 {
	f, _ := scene.AsFloats(c.Kwargs[key])
	return f
}

// Ints returns a named integer-list argument.
func (c *Creation) Ints(key string) []int {
	v, _ := scene.AsInts(c.Kwargs[key])
	return v
}

// Vec3s returns a named point-list argument.
func (c *Creation) Vec3s(key string) ([]scene.Vec3, error) {
	pts, ok := scene.AsVec3s(c.Kwargs[key])
	if !ok {
		return nil, fmt.Errorf("creation argument %q is not a point list", key)
	}
	return pts, nil
}

// IntLists returns a named list of integer lists.
func (c *Creation) IntLists(key string) ([][]int, error) {
	l, ok := scene.AsIntLists(c.Kwargs[key])
	if !ok {
		return nil, fmt.Errorf("creation argument %q is not a list of integer lists", key)
	}
	return l, nil
}

// ArgStrings returns the positional arguments as strings, flattening
// nested lists.
func (c *Creation) ArgStrings() []string {
	s, _ := scene.AsStrings(c.Args)
	return s
}

// SceneArgs returns scene creation arguments for a node named name.
func (c *Creation) SceneArgs(name string) scene.Args {
	args := scene.Args{Name: name}
	if c == nil {
		return args
	}
	args.Positional = slices.Clone(c.Args)
	if len(c.Kwargs) > 0 {
		args.Named = maps.Clone(c.Kwargs)
	}
	return args
}

// MarshalJSON implements json.Marshaler.
func (c *Creation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Kwargs)+1)
	for k, v := range c.Kwargs {
		out[k] = v
	}
	if len(c.Args) > 0 {
		out[argsKey] = c.Args
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Creation) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Args = nil
	c.Kwargs = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == argsKey {
			args, ok := v.([]any)
			if !ok {
				return fmt.Errorf("creation %q must be a list", argsKey)
			}
			c.Args = args
			continue
		}
		c.Kwargs[k] = v
	}
	return nil
}
