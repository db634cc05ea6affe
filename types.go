package goToken

import (
	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/MrEthical07/goToken/scope"
)

// Payload is the canonical payload embedded in an access token.
type Payload = claims.Payload

// RefreshRecord is the server-side state behind a refresh token.
type RefreshRecord = refresh.Record

// Grant is a (resource, action) permission.
type Grant = scope.Grant

// Input is what callers supply to mint tokens. Admin adds the configured
// admin grants to Grants; how grants are derived is the access strategy's
// concern.
type Input struct {
	SubjectID string
	TenantID  string
	Admin     bool
	Grants    []Grant
}

// AccessResult is a freshly signed access token together with the payload it
// embeds.
type AccessResult struct {
	AccessToken string
	Payload     Payload
}

// Tokens is the result of [Engine.CreateTokens].
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Payload      Payload
}
