package middleware

import (
	"net/http"
	"time"
)

// CookieOptions controls how a token cookie is written. Path, Domain and
// MaxAge may depend on the token value.
type CookieOptions struct {
	Path     Value[string]
	Domain   Value[string]
	MaxAge   Value[time.Duration]
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieOptions returns secure, HttpOnly, SameSite=Lax options on
// path "/" with the given lifetime.
func DefaultCookieOptions(maxAge time.Duration) CookieOptions {
	return CookieOptions{
		Path:     Static("/"),
		MaxAge:   Static(maxAge),
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setTokenCookie(w http.ResponseWriter, name, token string, opts CookieOptions) {
	path := opts.Path.Resolve(token)
	if path == "" {
		path = "/"
	}
	maxAge := int(opts.MaxAge.Resolve(token) / time.Second)

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     path,
		Domain:   opts.Domain.Resolve(token),
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	})
}

func clearTokenCookie(w http.ResponseWriter, name string, opts CookieOptions) {
	path := opts.Path.Resolve("")
	if path == "" {
		path = "/"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   opts.Domain.Resolve(""),
		MaxAge:   -1,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	})
}
