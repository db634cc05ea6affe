package scope

import (
	"errors"
	"sort"
	"strings"
)

// Grant is a single (resource, action) permission.
type Grant struct {
	Resource string
	Action   string
}

// String renders the grant in its human-readable "resource:action" form.
func (g Grant) String() string {
	return g.Resource + ":" + g.Action
}

// ParseGrant parses the "resource:action" form used in configuration.
func ParseGrant(s string) (Grant, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
		return Grant{}, errors.New("grant must have the form resource:action")
	}
	return Grant{Resource: resource, Action: action}, nil
}

// ParseGrants parses every entry with [ParseGrant].
func ParseGrants(values []string) ([]Grant, error) {
	out := make([]Grant, 0, len(values))
	for _, v := range values {
		g, err := ParseGrant(v)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Set is a collection of grants without duplicates. Order is not significant.
type Set map[Grant]struct{}

// NewSet builds a Set from grants, collapsing duplicates.
func NewSet(grants ...Grant) Set {
	s := make(Set, len(grants))
	for _, g := range grants {
		s[g] = struct{}{}
	}
	return s
}

// Add inserts g.
func (s Set) Add(g Grant) {
	s[g] = struct{}{}
}

// Has reports whether the set contains resource:action.
func (s Set) Has(resource, action string) bool {
	_, ok := s[Grant{Resource: resource, Action: action}]
	return ok
}

// Len returns the number of grants.
func (s Set) Len() int {
	return len(s)
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for g := range s {
		if _, ok := other[g]; !ok {
			return false
		}
	}
	return true
}

// Grants returns the grants sorted by resource, then action.
func (s Set) Grants() []Grant {
	out := make([]Grant, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}
