// Package claims maps between the caller-facing token payload and the compact
// claim names embedded in a signed access token.
//
// The mapping is pure renaming: compaction of permission grants is done by
// package scope before a payload reaches this codec.
package claims
