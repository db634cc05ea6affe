// Package scope compacts hierarchical permission grants into short strings that
// can be embedded in a signed claim set, and expands them back.
//
// # Wire form
//
// A grant is a (resource, action) pair. Grants are grouped by resource and
// emitted as one segment per resource:
//
//	<resourceCode><actionSep><actionCode>[<actionSep><actionCode>...]
//
// Segments are joined with the resource separator. With the default
// configuration {admin: "a"} the grants admin:read and admin:write encode to
// "a:r:w". Resource segments are ordered by resource code and actions by the
// registry's canonical action order, so equal grant sets always produce the
// identical string.
//
// # Architecture boundaries
//
// This package owns the [Registry] and the [Codec]. It performs no I/O and
// does not know about tokens, claims, or transports.
package scope
