package engine

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/rigstash/pkg/errors"
)

// NamespaceMap rewrites the namespace From to To. An empty To strips the
// namespace; an empty From matches names without a namespace.
type NamespaceMap struct {
	From string
	To   string
}

// ResolveName maps a recorded name to a live name. With a namespace map
// the name is split at its first ":" and a matching namespace rewritten.
// Every nameMap key found in the base name is then replaced by its value,
// in sorted key order.
func ResolveName(name string, nameMap map[string]string, nsMap *NamespaceMap) string {
	return NewResolver(nameMap, nsMap).Resolve(name)
}

// Resolver applies one set of renaming rules.
type Resolver struct {
	nameMap map[string]string
	keys    []string
	ns      *NamespaceMap
}

// NewResolver returns a resolver for the given maps. Either may be nil.
func NewResolver(nameMap map[string]string, nsMap *NamespaceMap) *Resolver {
	return &Resolver{
		nameMap: nameMap,
		keys:    slices.Sorted(maps.Keys(nameMap)),
		ns:      nsMap,
	}
}

// Resolve maps a recorded name to a live name.
func (r *Resolver) Resolve(name string) string {
	ns, base := "", name
	if r.ns != nil {
		if before, after, ok := strings.Cut(name, ":"); ok {
			ns, base = before, after
		}
		if ns == r.ns.From {
			ns = r.ns.To
		}
	}
	for _, k := range r.keys {
		if k != "" {
			base = strings.ReplaceAll(base, k, r.nameMap[k])
		}
	}
	if ns == "" {
		return base
	}
	return ns + ":" + base
}

// Identity reports whether the resolver leaves every name unchanged.
func (r *Resolver) Identity() bool {
	return len(r.keys) == 0 && r.ns == nil
}

// =============================================================================
// Creation Policy
// =============================================================================

// Action is what a load does with a record's target node.
type Action int

const (
	// ActionCreate creates the node from the record's creation data.
	ActionCreate Action = iota
	// ActionReuse loads the payload onto the existing node.
	ActionReuse
	// ActionRecreate deletes the existing node and creates it again.
	ActionRecreate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionReuse:
		return "reuse"
	case ActionRecreate:
		return "recreate"
	}
	return "unknown"
}

// Decide chooses the action for a record whose resolved name exists or
// not. It fails with MISSING_CREATION_DATA when the node must be created
// and the record cannot create it.
func Decide(exists, recreate, hasCreation bool) (Action, error) {
	action := ActionCreate
	switch {
	case exists && !recreate:
		return ActionReuse, nil
	case exists:
		action = ActionRecreate
	}
	if !hasCreation {
		return action, errors.New(errors.ErrCodeMissingCreationData, "%s requires creation data", action)
	}
	return action, nil
}
