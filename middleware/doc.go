// Package middleware adapts a goToken.Engine to net/http.
//
// [Authenticate] decodes an access token if one is present and never rejects;
// [RequireAuth] verifies and rejects with 401; [RequireScope] checks a grant
// on the payload either of them stored. [RefreshHandler] and [LogoutHandler]
// manage the token cookies, with cookie attributes given as a [Value] that is
// either static or computed from the token. [RateLimit] throttles the
// token endpoints per client.
//
// Token policy lives in the engine. This package only moves tokens between
// requests, cookies and the engine.
package middleware
