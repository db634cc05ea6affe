package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownResource is returned when a grant or scope string names a resource
	// the registry does not know.
	ErrUnknownResource = errors.New("unknown scope resource")
	// ErrUnknownAction is returned when a grant or scope string names an action
	// the registry does not know.
	ErrUnknownAction = errors.New("unknown scope action")
	// ErrMalformedScope is returned when a scope string is structurally invalid.
	ErrMalformedScope = errors.New("malformed scope string")
)

// Codec encodes grant sets into compact scope strings and back.
// Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	registry *Registry
}

// NewCodec returns a Codec backed by registry.
func NewCodec(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Registry returns the registry the codec was built with.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Encode compacts grants. Duplicates collapse; the output does not depend on
// the order of grants. An empty input encodes to "".
func (c *Codec) Encode(grants []Grant) (string, error) {
	if len(grants) == 0 {
		return "", nil
	}

	r := c.registry
	byResource := make(map[string]map[string]struct{}, 1)
	for _, g := range grants {
		rc, ok := r.resourceToCode[g.Resource]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownResource, g.Resource)
		}
		ac, ok := r.actionToCode[g.Action]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownAction, g.Action)
		}
		actions := byResource[rc]
		if actions == nil {
			actions = make(map[string]struct{}, 2)
			byResource[rc] = actions
		}
		actions[ac] = struct{}{}
	}

	resourceCodes := make([]string, 0, len(byResource))
	for rc := range byResource {
		resourceCodes = append(resourceCodes, rc)
	}
	sort.Strings(resourceCodes)

	var b strings.Builder
	for i, rc := range resourceCodes {
		if i > 0 {
			b.WriteString(r.resourceSep)
		}
		b.WriteString(rc)

		actionCodes := make([]string, 0, len(byResource[rc]))
		for ac := range byResource[rc] {
			actionCodes = append(actionCodes, ac)
		}
		sort.Slice(actionCodes, func(i, j int) bool {
			return r.actionRank[actionCodes[i]] < r.actionRank[actionCodes[j]]
		})
		for _, ac := range actionCodes {
			b.WriteString(r.actionSep)
			b.WriteString(ac)
		}
	}

	return b.String(), nil
}

// EncodeSet is Encode over a Set.
func (c *Codec) EncodeSet(s Set) (string, error) {
	return c.Encode(s.Grants())
}

// Decode expands a scope string produced by Encode. "" decodes to an empty set.
func (c *Codec) Decode(scope string) (Set, error) {
	out := Set{}
	if scope == "" {
		return out, nil
	}

	r := c.registry
	for _, segment := range strings.Split(scope, r.resourceSep) {
		parts := strings.Split(segment, r.actionSep)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("%w: segment %q", ErrMalformedScope, segment)
		}
		resource, ok := r.codeToResource[parts[0]]
		if !ok {
			return nil, fmt.Errorf("%w: code %q", ErrUnknownResource, parts[0])
		}
		for _, ac := range parts[1:] {
			if ac == "" {
				return nil, fmt.Errorf("%w: segment %q", ErrMalformedScope, segment)
			}
			action, ok := r.codeToAction[ac]
			if !ok {
				return nil, fmt.Errorf("%w: code %q", ErrUnknownAction, ac)
			}
			out.Add(Grant{Resource: resource, Action: action})
		}
	}

	return out, nil
}

// Has reports whether scope grants action on resource. It scans the string in
// place without building a Set, and agrees with membership in Decode(scope):
// unregistered names are never granted and a scope Decode would reject grants
// nothing.
func (c *Codec) Has(scope, resource, action string) bool {
	r := c.registry
	rc, ok := r.resourceToCode[resource]
	if !ok {
		return false
	}
	ac, ok := r.actionToCode[action]
	if !ok {
		return false
	}

	if scope == "" {
		return false
	}

	found := false
	for {
		segment, rest, more := strings.Cut(scope, r.resourceSep)

		head, actions, hasActions := strings.Cut(segment, r.actionSep)
		if !hasActions || head == "" {
			return false
		}
		if _, ok := r.codeToResource[head]; !ok {
			return false
		}
		for {
			var code string
			code, actions, hasActions = strings.Cut(actions, r.actionSep)
			if code == "" {
				return false
			}
			if _, ok := r.codeToAction[code]; !ok {
				return false
			}
			if head == rc && code == ac {
				found = true
			}
			if !hasActions {
				break
			}
		}

		if !more {
			return found
		}
		scope = rest
	}
}
