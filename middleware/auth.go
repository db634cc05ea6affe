package middleware

import (
	"context"
	"net/http"

	goToken "github.com/MrEthical07/goToken"
)

type payloadContextKey struct{}

// PayloadFromContext returns the payload stored by Authenticate or
// RequireAuth.
func PayloadFromContext(ctx context.Context) (goToken.Payload, bool) {
	p, ok := ctx.Value(payloadContextKey{}).(goToken.Payload)
	return p, ok
}

// WithPayload returns a copy of ctx carrying p.
func WithPayload(ctx context.Context, p goToken.Payload) context.Context {
	return context.WithValue(ctx, payloadContextKey{}, p)
}

// Authenticate decodes the request's access token when one is present and
// valid, and always calls next. Handlers check PayloadFromContext.
func Authenticate(engine *goToken.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if token, ok := engine.GetAccessToken(goToken.HTTPRequest(r)); ok {
					if p, ok := engine.Decode(r.Context(), token); ok {
						r = r.WithContext(WithPayload(r.Context(), p))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a verifiable access token with 401.
func RequireAuth(engine *goToken.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := engine.GetAccessToken(goToken.HTTPRequest(r))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p, err := engine.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), p)))
		})
	}
}

// RequireScope rejects requests whose payload does not grant action on
// resource. It must run after Authenticate or RequireAuth; a request with no
// payload gets 401, one lacking the grant gets 403.
func RequireScope(engine *goToken.Engine, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PayloadFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !engine.HasScope(p, resource, action) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
