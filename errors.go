package goToken

import (
	"errors"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/MrEthical07/goToken/scope"
)

// Verification, codec and store errors are the sub-package sentinels, so
// errors.Is matches regardless of which layer wrapped them.
var (
	// ErrInvalidSignature is returned when an access token's signature does not verify.
	ErrInvalidSignature = jwt.ErrInvalidSignature
	// ErrExpired is returned when an access token expired beyond the clock leeway.
	ErrExpired = jwt.ErrExpired
	// ErrMalformedToken is returned when an access token cannot be decoded at all.
	ErrMalformedToken = jwt.ErrMalformed
	// ErrTokenInvalid covers the remaining verification failures (issuer, audience, kid, nbf).
	ErrTokenInvalid = jwt.ErrInvalid
	// ErrMalformedClaim is returned when a verified token lacks a required claim.
	ErrMalformedClaim = claims.ErrMalformedClaim
	// ErrUnknownResource is returned when a grant or scope names an unregistered resource.
	ErrUnknownResource = scope.ErrUnknownResource
	// ErrUnknownAction is returned when a grant or scope names an unregistered action.
	ErrUnknownAction = scope.ErrUnknownAction
	// ErrMalformedScope is returned when a scope string is structurally invalid.
	ErrMalformedScope = scope.ErrMalformedScope
	// ErrStoreUnavailable wraps failures of the refresh-token store.
	ErrStoreUnavailable = refresh.ErrUnavailable
)

var (
	// ErrMissingRefreshCookie is returned by transport adapters when a request
	// carries no refresh-token cookie.
	ErrMissingRefreshCookie = errors.New("missing refresh token cookie")
	// ErrInvalidInput is returned when an Input lacks a subject identifier.
	ErrInvalidInput = errors.New("invalid token input")
	// ErrEngineNotReady is returned when a method is called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
