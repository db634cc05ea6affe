package scope

import (
	"errors"
	"testing"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	r, err := NewRegistry(RegistryConfig{
		Resources: map[string]string{"admin": "a", "billing": "b", "users": "u"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewCodec(r)
}

func TestEncodeAdminReadWrite(t *testing.T) {
	c := newTestCodec(t)

	got, err := c.Encode([]Grant{{"admin", "write"}, {"admin", "read"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != "a:r:w" {
		t.Fatalf("expected a:r:w, got %q", got)
	}
}

func TestEncodeDeterministicAcrossInsertionOrder(t *testing.T) {
	c := newTestCodec(t)

	first, err := c.Encode([]Grant{{"users", "list"}, {"admin", "read"}, {"billing", "write"}, {"admin", "delete"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := c.Encode([]Grant{{"admin", "delete"}, {"billing", "write"}, {"admin", "read"}, {"users", "list"}, {"admin", "read"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if first != second {
		t.Fatalf("encoding not deterministic: %q vs %q", first, second)
	}
	if first != "a:d:r,b:w,u:l" {
		t.Fatalf("unexpected canonical form %q", first)
	}
}

func TestEncodeEmpty(t *testing.T) {
	c := newTestCodec(t)

	got, err := c.Encode(nil)
	if err != nil || got != "" {
		t.Fatalf("expected empty encoding, got %q err=%v", got, err)
	}
	set, err := c.Decode("")
	if err != nil || set.Len() != 0 {
		t.Fatalf("expected empty set, got %v err=%v", set, err)
	}
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	cases := []Set{
		NewSet(),
		NewSet(Grant{"admin", "read"}),
		NewSet(Grant{"admin", "read"}, Grant{"admin", "write"}),
		NewSet(Grant{"users", "create"}, Grant{"users", "update"}, Grant{"billing", "list"}),
		NewSet(
			Grant{"admin", "read"}, Grant{"admin", "write"}, Grant{"admin", "create"},
			Grant{"admin", "update"}, Grant{"admin", "delete"}, Grant{"admin", "list"},
		),
	}

	for _, want := range cases {
		encoded, err := c.EncodeSet(want)
		if err != nil {
			t.Fatalf("EncodeSet(%v): %v", want.Grants(), err)
		}
		got, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if !got.Equal(want) {
			t.Fatalf("roundtrip mismatch for %q: got %v want %v", encoded, got.Grants(), want.Grants())
		}
	}
}

func TestEncodeUnknownNames(t *testing.T) {
	c := newTestCodec(t)

	if _, err := c.Encode([]Grant{{"reports", "read"}}); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
	if _, err := c.Encode([]Grant{{"admin", "approve"}}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	c := newTestCodec(t)

	tests := []struct {
		in   string
		want error
	}{
		{"z:r", ErrUnknownResource},
		{"a:x", ErrUnknownAction},
		{"a", ErrMalformedScope},
		{"a:", ErrMalformedScope},
		{":r", ErrMalformedScope},
		{"a:r,,b:w", ErrMalformedScope},
	}

	for _, tt := range tests {
		if _, err := c.Decode(tt.in); !errors.Is(err, tt.want) {
			t.Fatalf("Decode(%q): expected %v, got %v", tt.in, tt.want, err)
		}
	}
}

func TestHasMatchesDecode(t *testing.T) {
	c := newTestCodec(t)
	scope := "a:r:w,u:l"

	set, err := c.Decode(scope)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	checks := []Grant{
		{"admin", "read"}, {"admin", "write"}, {"admin", "delete"},
		{"users", "list"}, {"users", "read"}, {"billing", "read"},
		{"unknown", "read"}, {"admin", "unknown"},
	}
	for _, g := range checks {
		if got, want := c.Has(scope, g.Resource, g.Action), set.Has(g.Resource, g.Action); got != want {
			t.Fatalf("Has(%s) = %v, decode membership = %v", g, got, want)
		}
	}
	if c.Has("", "admin", "read") {
		t.Fatal("empty scope must not grant anything")
	}

	corrupted := []string{
		"a:r:zz",
		"a:r:",
		"a:r,",
		"a:r,zz:r",
		"a:r,u",
		"a::r",
		":r,a:r",
		"a:r,,u:l",
	}
	for _, s := range corrupted {
		if _, err := c.Decode(s); err == nil {
			t.Fatalf("Decode(%q) unexpectedly succeeded", s)
		}
		if c.Has(s, "admin", "read") {
			t.Fatalf("Has(%q, admin, read) = true for a scope Decode rejects", s)
		}
	}
}

func TestCustomSeparatorsAndOrder(t *testing.T) {
	r, err := NewRegistry(RegistryConfig{
		Resources:         map[string]string{"admin": "a", "orders": "o"},
		Actions:           map[string]string{"read": "r", "write": "w"},
		ActionOrder:       []string{"write", "read"},
		ResourceSeparator: "|",
		ActionSeparator:   ".",
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c := NewCodec(r)

	got, err := c.Encode([]Grant{{"admin", "read"}, {"admin", "write"}, {"orders", "read"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != "a.w.r|o.r" {
		t.Fatalf("expected a.w.r|o.r, got %q", got)
	}
	if !c.Has(got, "orders", "read") {
		t.Fatal("expected orders:read to be granted")
	}
}
