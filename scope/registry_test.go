package scope

import "testing"

func TestNewRegistryRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RegistryConfig
	}{
		{"no resources", RegistryConfig{}},
		{"duplicate resource code", RegistryConfig{Resources: map[string]string{"admin": "a", "audit": "a"}}},
		{"empty resource code", RegistryConfig{Resources: map[string]string{"admin": ""}}},
		{"code contains separator", RegistryConfig{Resources: map[string]string{"admin": "a:"}}},
		{"duplicate action code", RegistryConfig{
			Resources: map[string]string{"admin": "a"},
			Actions:   map[string]string{"read": "r", "review": "r"},
		}},
		{"same separators", RegistryConfig{
			Resources:         map[string]string{"admin": "a"},
			ResourceSeparator: ":",
			ActionSeparator:   ":",
		}},
		{"partial action order", RegistryConfig{
			Resources:   map[string]string{"admin": "a"},
			Actions:     map[string]string{"read": "r", "write": "w"},
			ActionOrder: []string{"read"},
		}},
		{"unknown action in order", RegistryConfig{
			Resources:   map[string]string{"admin": "a"},
			Actions:     map[string]string{"read": "r", "write": "w"},
			ActionOrder: []string{"read", "approve"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	r, err := NewRegistry(RegistryConfig{Resources: map[string]string{"admin": "a"}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if code, ok := r.ResourceCode("admin"); !ok || code != "a" {
		t.Fatalf("ResourceCode(admin) = %q, %v", code, ok)
	}
	if name, ok := r.Resource("a"); !ok || name != "admin" {
		t.Fatalf("Resource(a) = %q, %v", name, ok)
	}
	if code, ok := r.ActionCode("write"); !ok || code != "w" {
		t.Fatalf("ActionCode(write) = %q, %v", code, ok)
	}
	if _, ok := r.Action("z"); ok {
		t.Fatal("unexpected action for unassigned code")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 resource, got %d", r.Count())
	}
}

func TestParseGrant(t *testing.T) {
	g, err := ParseGrant(" admin:read ")
	if err != nil || g != (Grant{Resource: "admin", Action: "read"}) {
		t.Fatalf("ParseGrant = %v, %v", g, err)
	}
	for _, bad := range []string{"", "admin", "admin:", ":read", "a:b:c"} {
		if _, err := ParseGrant(bad); err == nil {
			t.Fatalf("ParseGrant(%q) expected error", bad)
		}
	}
}
