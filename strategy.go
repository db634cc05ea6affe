package goToken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/MrEthical07/goToken/scope"
)

// AccessStrategy builds, signs and verifies access tokens. The engine passes
// payloads through the claims codec between BuildPayload and Create, and
// after Verify.
type AccessStrategy interface {
	// BuildPayload derives the canonical payload, including the compact
	// scope string, from caller input.
	BuildPayload(in Input) (Payload, error)
	// Create signs an encoded claim set.
	Create(ctx context.Context, cl claims.Claims) (string, error)
	// Verify checks the token signature and expiry and returns its claim set.
	Verify(ctx context.Context, token string) (claims.Claims, error)
}

// RefreshStrategy persists and resolves refresh tokens.
type RefreshStrategy interface {
	// Create persists a record for in and returns its opaque identifier.
	Create(ctx context.Context, in Input) (string, error)
	// GetPayload returns the live record for token, or nil when absent.
	GetPayload(ctx context.Context, token string) (*RefreshRecord, error)
	// Remove deletes token and reports whether a live record existed.
	Remove(ctx context.Context, token string) (bool, error)
}

/*
====================================
JWT ACCESS STRATEGY
====================================
*/

// JWTAccessStrategy signs access tokens with a [jwt.Manager]. Input.Admin
// adds the configured admin grants to Input.Grants before compaction.
type JWTAccessStrategy struct {
	manager     *jwt.Manager
	scope       *scope.Codec
	adminGrants []scope.Grant
}

// NewJWTAccessStrategy returns a strategy signing with manager and compacting
// grants with codec. Every admin grant must be encodable by codec.
func NewJWTAccessStrategy(manager *jwt.Manager, codec *scope.Codec, adminGrants []scope.Grant) (*JWTAccessStrategy, error) {
	if manager == nil || codec == nil {
		return nil, errors.New("jwt access strategy requires a manager and a scope codec")
	}
	if _, err := codec.Encode(adminGrants); err != nil {
		return nil, fmt.Errorf("admin grants: %w", err)
	}
	return &JWTAccessStrategy{
		manager:     manager,
		scope:       codec,
		adminGrants: append([]scope.Grant(nil), adminGrants...),
	}, nil
}

// BuildPayload compacts the input grants, plus the admin grants when
// in.Admin is set, into a Payload.
//
// An empty SubjectID yields ErrInvalidInput. Unregistered grants yield
// ErrUnknownResource or ErrUnknownAction.
func (s *JWTAccessStrategy) BuildPayload(in Input) (Payload, error) {
	if in.SubjectID == "" {
		return Payload{}, ErrInvalidInput
	}

	grants := in.Grants
	if in.Admin {
		grants = make([]scope.Grant, 0, len(in.Grants)+len(s.adminGrants))
		grants = append(grants, in.Grants...)
		grants = append(grants, s.adminGrants...)
	}

	compact, err := s.scope.Encode(grants)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		SubjectID: in.SubjectID,
		TenantID:  in.TenantID,
		Scope:     compact,
	}, nil
}

// Create signs cl.
func (s *JWTAccessStrategy) Create(_ context.Context, cl claims.Claims) (string, error) {
	return s.manager.Sign(cl)
}

// Verify parses token and returns its claims.
func (s *JWTAccessStrategy) Verify(_ context.Context, token string) (claims.Claims, error) {
	mc, err := s.manager.Parse(token)
	if err != nil {
		return nil, err
	}
	return claims.Claims(mc), nil
}

/*
====================================
STORE REFRESH STRATEGY
====================================
*/

// StoreRefreshStrategy keeps refresh records in a [refresh.Store] keyed by a
// freshly generated identifier.
type StoreRefreshStrategy struct {
	store refresh.Store
	ttl   time.Duration
	newID refresh.IDGenerator
	now   func() time.Time
}

// NewStoreRefreshStrategy returns a strategy issuing records that live for ttl.
func NewStoreRefreshStrategy(store refresh.Store, ttl time.Duration, newID refresh.IDGenerator) (*StoreRefreshStrategy, error) {
	if store == nil {
		return nil, errors.New("refresh strategy requires a store")
	}
	if ttl <= 0 {
		return nil, errors.New("refresh TTL must be > 0")
	}
	if newID == nil {
		return nil, errors.New("refresh strategy requires an id generator")
	}
	return &StoreRefreshStrategy{
		store: store,
		ttl:   ttl,
		newID: newID,
		now:   time.Now,
	}, nil
}

// Create persists a new record and returns its identifier.
func (s *StoreRefreshStrategy) Create(ctx context.Context, in Input) (string, error) {
	if in.SubjectID == "" {
		return "", ErrInvalidInput
	}

	id, err := s.newID()
	if err != nil {
		return "", err
	}

	now := s.now()
	rec := refresh.Record{
		SubjectID: in.SubjectID,
		TenantID:  in.TenantID,
		IssuedAt:  now,
		ExpireAt:  now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// GetPayload returns the live record for token.
func (s *StoreRefreshStrategy) GetPayload(ctx context.Context, token string) (*RefreshRecord, error) {
	return s.store.Get(ctx, token)
}

// Remove deletes token.
func (s *StoreRefreshStrategy) Remove(ctx context.Context, token string) (bool, error) {
	return s.store.Delete(ctx, token)
}
