// Package goToken issues, verifies and revokes access and refresh tokens for
// HTTP services.
//
// An [Engine] composes two pluggable strategies. The [AccessStrategy] turns
// caller [Input] into a [Payload] carrying a compact scope string and signs it
// as a JWT; the [RefreshStrategy] persists a [RefreshRecord] under an opaque
// identifier in a [refresh.Store] (memory, Redis or SQLite). Payloads cross
// the wire through the claims codec, so claim names are configuration.
//
// Engines are built once through [Builder] and are safe for concurrent use:
//
//	engine, err := goToken.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		Build()
//
// Transport concerns stay thin. [Engine.GetAccessToken] reads a bearer header
// or cookie from any [RequestSource]; [Engine.GetPayload] runs a caller
// supplied reset hook before each refresh lookup so adapters can reissue the
// refresh cookie. The middleware package builds net/http handlers on top.
package goToken
