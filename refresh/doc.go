// Package refresh persists refresh-token state behind opaque identifiers.
//
// # Stores
//
// [Store] is the contract consumed by the token engine. Three implementations
// are provided: [MemoryStore] for tests and single-process deployments,
// [RedisStore] backed by key TTLs, and [SQLStore] on SQLite with embedded
// schema migrations.
//
// Records are created once and deleted once; they are never updated in place,
// so stores need no cross-request locking beyond their own per-key atomicity.
// An expired record is indistinguishable from an absent one.
//
// # What this package must NOT do
//
//   - Sign or verify access tokens.
//   - Import goToken, jwt, or middleware.
//   - Implement rotation policy; rotation is the caller's reset hook.
package refresh
