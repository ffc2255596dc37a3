// Package influence reconciles a recorded influence list with the live
// influence list of a deformer.
//
// [Remap] compares the two lists by name and returns a [record.IndexMap]
// from recorded influence indices to live ones, mutating the deformer as
// little as possible:
//
//  1. Identical lists (names, order and indices): empty map, no mutation.
//  2. A recorded influence missing from the deformer is added at the next
//     free index. When its object no longer exists a placeholder joint of
//     the same name is created under [PlaceholderGroup] first.
//  3. A recorded influence present at another index is only mapped.
//  4. A live influence absent from the record is removed.
//
// Recorded influences are processed in recorded order, so placeholders are
// appended in that order after the existing influences.
package influence

import (
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// PlaceholderGroup is the transform placeholders are parented under.
const PlaceholderGroup = "__MISSING_INFS__"

// Options controls Remap.
type Options struct {
	// Resolve maps recorded influence names to live names.
	Resolve func(string) string
	// Filter rejects recorded influences that must not be added. Rejected
	// influences get no map entry.
	Filter func(name string) bool
	// NoPlaceholders skips missing influence objects instead of creating
	// placeholders for them.
	NoPlaceholders bool
	// KeepExtra leaves live influences absent from the record in place.
	KeepExtra bool
}

// Result describes what Remap did.
type Result struct {
	// Identity is set when the lists matched and nothing was done.
	Identity bool
	// Added lists influences added to the deformer, placeholders included.
	Added []string
	// Placeholders lists the placeholder joints created.
	Placeholders []string
	// Removed lists live influences removed from the deformer.
	Removed []string
	// Skipped lists recorded influences with no map entry.
	Skipped []string
}

// Lookup returns the live index for a recorded index and whether weights
// recorded at that index have a live destination.
func (r *Result) Lookup(m record.IndexMap, old int) (int, bool) {
	if r.Identity {
		return old, true
	}
	idx, ok := m[old]
	return idx, ok
}

// Remap reconciles recorded with the live influences of deformer. Except
// in the identity case, the returned map has an entry for every recorded
// influence that was not skipped, unchanged indices included.
func Remap(s scene.Scene, deformer scene.Node, recorded *record.InfluenceList, opts Options) (record.IndexMap, *Result, error) {
	if recorded == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "remap %s: no recorded influences", deformer.Name())
	}
	if err := recorded.Validate(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "remap %s", deformer.Name())
	}
	live, err := s.ListInfluences(deformer)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "list influences of %s", deformer.Name())
	}

	resolve := opts.Resolve
	if resolve == nil {
		resolve = func(n string) string { return n }
	}
	names := make([]string, recorded.Len())
	for i, n := range recorded.Names {
		names[i] = resolve(n)
	}

	if identical(names, recorded.Indices, live) {
		return record.IndexMap{}, &Result{Identity: true}, nil
	}

	liveIdx := make(map[string]int, len(live))
	for _, inf := range live {
		liveIdx[inf.Name] = inf.Index
	}

	m := make(record.IndexMap, len(names))
	res := &Result{}
	wanted := make(map[string]bool, len(names))
	for i, name := range names {
		old := recorded.Indices[i]
		wanted[name] = true

		if idx, ok := liveIdx[name]; ok {
			m[old] = idx
			continue
		}
		if opts.Filter != nil && !opts.Filter(name) {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		var obj scene.Node
		if s.Exists(name) {
			if obj, err = s.Lookup(name); err != nil {
				return nil, nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "look up influence %s", name)
			}
		} else if opts.NoPlaceholders {
			res.Skipped = append(res.Skipped, name)
			continue
		} else {
			if obj, err = Placeholder(s, name); err != nil {
				return nil, nil, err
			}
			res.Placeholders = append(res.Placeholders, name)
		}

		idx, err := s.AddInfluence(deformer, obj)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "add influence %s to %s", name, deformer.Name())
		}
		liveIdx[name] = idx
		m[old] = idx
		res.Added = append(res.Added, name)
	}

	if !opts.KeepExtra {
		for _, inf := range live {
			if wanted[inf.Name] {
				continue
			}
			obj, err := s.Lookup(inf.Name)
			if err == nil {
				err = s.RemoveInfluence(deformer, obj)
			}
			if err != nil {
				return nil, nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "remove influence %s from %s", inf.Name, deformer.Name())
			}
			res.Removed = append(res.Removed, inf.Name)
		}
	}
	return m, res, nil
}

func identical(names []string, indices []int, live []scene.Influence) bool {
	if len(names) != len(live) {
		return false
	}
	for i, inf := range live {
		if inf.Name != names[i] || inf.Index != indices[i] {
			return false
		}
	}
	return true
}

// Placeholder creates a stand-in joint named name under PlaceholderGroup,
// creating the group on first use.
func Placeholder(s scene.Scene, name string) (scene.Node, error) {
	if !s.Exists(PlaceholderGroup) {
		if _, err := s.Create("transform", scene.Args{Name: PlaceholderGroup}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "create placeholder group")
		}
	}
	n, err := s.Create("joint", scene.Args{
		Name:  name,
		Named: map[string]any{"parent": PlaceholderGroup},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInfluenceResolution, err, "create placeholder for %s", name)
	}
	return n, nil
}
