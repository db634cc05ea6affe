package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultResourceSeparator joins resource segments.
	DefaultResourceSeparator = ","
	// DefaultActionSeparator joins a resource code with its action codes.
	DefaultActionSeparator = ":"
)

// DefaultActions returns the resource-independent action alphabet used when
// RegistryConfig.Actions is empty.
func DefaultActions() map[string]string {
	return map[string]string{
		"read":   "r",
		"write":  "w",
		"create": "c",
		"update": "u",
		"delete": "d",
		"list":   "l",
	}
}

// RegistryConfig describes the resources and actions a [Registry] accepts.
//
// Resources maps resource names to their compact code, e.g. {"admin": "a"}.
// Actions maps action names to their compact code; nil selects
// [DefaultActions]. ActionOrder fixes the order in which actions are emitted
// inside a segment; nil orders by action code.
type RegistryConfig struct {
	Resources         map[string]string
	Actions           map[string]string
	ActionOrder       []string
	ResourceSeparator string
	ActionSeparator   string
}

// Registry maps resource and action names to compact codes and back.
// It is immutable after [NewRegistry] and safe for concurrent use.
type Registry struct {
	resourceToCode map[string]string
	codeToResource map[string]string
	actionToCode   map[string]string
	codeToAction   map[string]string
	actionRank     map[string]int

	resourceSep string
	actionSep   string
}

// NewRegistry validates cfg and builds a Registry. Codes must be non-empty,
// unique within their kind, and must not contain either separator.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	resourceSep := cfg.ResourceSeparator
	if resourceSep == "" {
		resourceSep = DefaultResourceSeparator
	}
	actionSep := cfg.ActionSeparator
	if actionSep == "" {
		actionSep = DefaultActionSeparator
	}
	if resourceSep == actionSep || strings.Contains(resourceSep, actionSep) || strings.Contains(actionSep, resourceSep) {
		return nil, errors.New("resource and action separators must be distinct")
	}

	actions := cfg.Actions
	if len(actions) == 0 {
		actions = DefaultActions()
	}
	if len(cfg.Resources) == 0 {
		return nil, errors.New("scope registry requires at least one resource")
	}

	r := &Registry{
		resourceToCode: make(map[string]string, len(cfg.Resources)),
		codeToResource: make(map[string]string, len(cfg.Resources)),
		actionToCode:   make(map[string]string, len(actions)),
		codeToAction:   make(map[string]string, len(actions)),
		actionRank:     make(map[string]int, len(actions)),
		resourceSep:    resourceSep,
		actionSep:      actionSep,
	}

	for name, code := range cfg.Resources {
		if err := validateEntry("resource", name, code, resourceSep, actionSep); err != nil {
			return nil, err
		}
		if prev, exists := r.codeToResource[code]; exists {
			return nil, fmt.Errorf("resource code %q shared by %q and %q", code, prev, name)
		}
		r.resourceToCode[name] = code
		r.codeToResource[code] = name
	}

	for name, code := range actions {
		if err := validateEntry("action", name, code, resourceSep, actionSep); err != nil {
			return nil, err
		}
		if prev, exists := r.codeToAction[code]; exists {
			return nil, fmt.Errorf("action code %q shared by %q and %q", code, prev, name)
		}
		r.actionToCode[name] = code
		r.codeToAction[code] = name
	}

	order := cfg.ActionOrder
	if len(order) == 0 {
		codes := make([]string, 0, len(r.codeToAction))
		for code := range r.codeToAction {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for i, code := range codes {
			r.actionRank[code] = i
		}
		return r, nil
	}

	if len(order) != len(r.actionToCode) {
		return nil, errors.New("action order must list every action exactly once")
	}
	for i, name := range order {
		code, ok := r.actionToCode[name]
		if !ok {
			return nil, fmt.Errorf("action order names unknown action %q", name)
		}
		if _, dup := r.actionRank[code]; dup {
			return nil, fmt.Errorf("action order repeats %q", name)
		}
		r.actionRank[code] = i
	}

	return r, nil
}

func validateEntry(kind, name, code, resourceSep, actionSep string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if code == "" {
		return fmt.Errorf("%s %q has an empty code", kind, name)
	}
	if strings.Contains(code, resourceSep) || strings.Contains(code, actionSep) {
		return fmt.Errorf("%s code %q contains a separator", kind, code)
	}
	return nil
}

// ResourceCode returns the code for resource, or false if not registered.
func (r *Registry) ResourceCode(resource string) (string, bool) {
	code, ok := r.resourceToCode[resource]
	return code, ok
}

// Resource returns the resource name for code, or false if unassigned.
func (r *Registry) Resource(code string) (string, bool) {
	name, ok := r.codeToResource[code]
	return name, ok
}

// ActionCode returns the code for action, or false if not registered.
func (r *Registry) ActionCode(action string) (string, bool) {
	code, ok := r.actionToCode[action]
	return code, ok
}

// Action returns the action name for code, or false if unassigned.
func (r *Registry) Action(code string) (string, bool) {
	name, ok := r.codeToAction[code]
	return name, ok
}

// Count returns the number of registered resources.
func (r *Registry) Count() int {
	return len(r.resourceToCode)
}
