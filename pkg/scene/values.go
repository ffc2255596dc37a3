package scene

import "math"

// Values crossing the scene boundary come either from Go code (typed) or
// from decoded JSON documents (float64, []any, map[string]any). The As*
// helpers accept both forms.

// AsString converts v to a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsStrings converts v to a string slice. Nested lists are flattened.
func AsStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []string:
		return append([]string(nil), t...), true
	case string:
		return []string{t}, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			sub, ok := AsStrings(e)
			if !ok {
				return nil, false
			}
			out = append(out, sub...)
		}
		return out, true
	}
	return nil, false
}

// AsFloat converts numeric values and booleans to float64.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsInt converts integral values to int. Floats must have no fraction.
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// AsBool converts booleans and numbers to bool.
func AsBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	f, ok := AsFloat(v)
	return f != 0, ok
}

// AsVec3 converts a three-element list of numbers to a Vec3. Whole
// numbers count as coordinates; a fourth (homogeneous) element is ignored.
func AsVec3(v any) (Vec3, bool) {
	switch t := v.(type) {
	case Vec3:
		return t, true
	case []float64:
		if len(t) == 3 {
			return Vec3{t[0], t[1], t[2]}, true
		}
	case []any:
		if len(t) < 3 || len(t) > 4 {
			return Vec3{}, false
		}
		var out Vec3
		for i := range 3 {
			f, ok := AsFloat(t[i])
			if !ok {
				return Vec3{}, false
			}
			out[i] = f
		}
		return out, true
	}
	return Vec3{}, false
}

// AsVec3s converts a list of three-element lists to a point cloud.
func AsVec3s(v any) ([]Vec3, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []Vec3:
		return append([]Vec3(nil), t...), true
	case []any:
		out := make([]Vec3, len(t))
		for i, e := range t {
			p, ok := AsVec3(e)
			if !ok {
				return nil, false
			}
			out[i] = p
		}
		return out, true
	}
	return nil, false
}

// AsInts converts a list of integral values.
func AsInts(v any) ([]int, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []int:
		return append([]int(nil), t...), true
	case []any:
		out := make([]int, len(t))
		for i, e := range t {
			n, ok := AsInt(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// AsIntLists converts a list of integer lists (polygon vertex lists).
func AsIntLists(v any) ([][]int, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case [][]int:
		out := make([][]int, len(t))
		for i, l := range t {
			out[i] = append([]int(nil), l...)
		}
		return out, true
	case []any:
		out := make([][]int, len(t))
		for i, e := range t {
			l, ok := AsInts(e)
			if !ok {
				return nil, false
			}
			out[i] = l
		}
		return out, true
	}
	return nil, false
}

// AsFloats converts a list of numeric values.
func AsFloats(v any) ([]float64, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []float64:
		return append([]float64(nil), t...), true
	case []any:
		out := make([]float64, len(t))
		for i, e := range t {
			f, ok := AsFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}
