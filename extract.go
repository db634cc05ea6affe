package goToken

import (
	"net/http"
	"strings"
)

// RequestSource exposes the parts of an inbound request tokens are read from.
type RequestSource interface {
	Header(name string) string
	Cookie(name string) (string, bool)
}

type httpRequestSource struct {
	r *http.Request
}

// HTTPRequest adapts r to a RequestSource.
func HTTPRequest(r *http.Request) RequestSource {
	return httpRequestSource{r: r}
}

func (s httpRequestSource) Header(name string) string {
	if s.r == nil {
		return ""
	}
	return s.r.Header.Get(name)
}

func (s httpRequestSource) Cookie(name string) (string, bool) {
	if s.r == nil {
		return "", false
	}
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// MapSource is a RequestSource over plain maps. Header lookups ignore case.
type MapSource struct {
	Headers map[string]string
	Cookies map[string]string
}

func (s MapSource) Header(name string) string {
	if v, ok := s.Headers[name]; ok {
		return v
	}
	for k, v := range s.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (s MapSource) Cookie(name string) (string, bool) {
	v, ok := s.Cookies[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// GetAccessToken returns the bearer token from the configured header, falling
// back to the access-token cookie. The header wins when both are present.
func (e *Engine) GetAccessToken(src RequestSource) (string, bool) {
	if e == nil || src == nil {
		return "", false
	}
	if token, ok := bearerToken(src.Header(e.config.Transport.HeaderName)); ok {
		return token, true
	}
	return src.Cookie(e.config.Transport.AccessCookieName)
}

// GetRefreshToken returns the refresh-token cookie.
func (e *Engine) GetRefreshToken(src RequestSource) (string, bool) {
	if e == nil || src == nil {
		return "", false
	}
	return src.Cookie(e.config.Transport.RefreshCookieName)
}
