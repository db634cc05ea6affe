package claims

import (
	"errors"
	"fmt"
)

// ErrMalformedClaim is returned when a claim set is missing a required field
// or carries a field of the wrong type.
var ErrMalformedClaim = errors.New("malformed claim")

// Payload is the canonical, human-readable token payload.
type Payload struct {
	SubjectID string `json:"subjectId"`
	TenantID  string `json:"tenantId"`
	// Scope is the compact scope string produced by the scope codec.
	// "" means no elevated scope.
	Scope string `json:"scope"`
}

// Claims is the compact claim set carried inside a signed token.
type Claims map[string]any

// FieldNames selects the claim names used on the wire.
type FieldNames struct {
	Subject string
	Tenant  string
	Scope   string
}

// DefaultFieldNames returns {uId, cId, scope}.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		Subject: "uId",
		Tenant:  "cId",
		Scope:   "scope",
	}
}

// Validate reports whether the names are usable: non-empty, distinct, and not
// one of the registered JWT claim names.
func (f FieldNames) Validate() error {
	names := []string{f.Subject, f.Tenant, f.Scope}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return errors.New("claim field names cannot be empty")
		}
		if _, reserved := reservedClaims[n]; reserved {
			return fmt.Errorf("claim field name %q is reserved", n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("claim field name %q used twice", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

// Codec renames fields between Payload and Claims. It is stateless after
// construction and safe for concurrent use.
type Codec struct {
	names FieldNames
}

// NewCodec validates names and returns a Codec.
func NewCodec(names FieldNames) (*Codec, error) {
	if err := names.Validate(); err != nil {
		return nil, err
	}
	return &Codec{names: names}, nil
}

// Names returns the configured field names.
func (c *Codec) Names() FieldNames {
	return c.names
}

// Encode renames p into its compact claim form.
func (c *Codec) Encode(p Payload) Claims {
	return Claims{
		c.names.Subject: p.SubjectID,
		c.names.Tenant:  p.TenantID,
		c.names.Scope:   p.Scope,
	}
}

// Decode is the inverse of Encode. Unknown extra claims (exp, iat, ...) are
// ignored.
func (c *Codec) Decode(cl Claims) (Payload, error) {
	subject, err := stringField(cl, c.names.Subject)
	if err != nil {
		return Payload{}, err
	}
	tenant, err := stringField(cl, c.names.Tenant)
	if err != nil {
		return Payload{}, err
	}
	scope, err := stringField(cl, c.names.Scope)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		SubjectID: subject,
		TenantID:  tenant,
		Scope:     scope,
	}, nil
}

func stringField(cl Claims, name string) (string, error) {
	raw, ok := cl[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMalformedClaim, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrMalformedClaim, name, raw)
	}
	return s, nil
}
