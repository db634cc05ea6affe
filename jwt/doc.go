// Package jwt signs compact claim maps into access tokens and verifies them
// with strict algorithm pinning, required expiry, and a bounded clock leeway.
//
// Verification errors are classified into ErrExpired, ErrInvalidSignature,
// ErrMalformed and ErrInvalid so callers can branch with errors.Is.
package jwt
