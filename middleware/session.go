package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	goToken "github.com/MrEthical07/goToken"
)

// SessionOptions configures the cookie-writing handlers.
type SessionOptions struct {
	AccessCookie  CookieOptions
	RefreshCookie CookieOptions

	// Resolve maps a live refresh record to the input for a new access token,
	// typically by reloading the subject's grants. Nil reissues with the
	// record's subject and tenant and no grants.
	Resolve func(ctx context.Context, rec *goToken.RefreshRecord) (goToken.Input, error)

	Logger *slog.Logger
}

// DefaultSessionOptions derives cookie lifetimes from the engine's TTLs.
func DefaultSessionOptions(engine *goToken.Engine) SessionOptions {
	cfg := engine.Config()
	return SessionOptions{
		AccessCookie:  DefaultCookieOptions(cfg.JWT.AccessTTL),
		RefreshCookie: DefaultCookieOptions(cfg.Refresh.TTL),
	}
}

func (o SessionOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	SubjectID   string `json:"subject_id"`
	TenantID    string `json:"tenant_id,omitempty"`
	Scope       string `json:"scope"`
}

func writeTokenResponse(w http.ResponseWriter, access string, p goToken.Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: access,
		SubjectID:   p.SubjectID,
		TenantID:    p.TenantID,
		Scope:       p.Scope,
	})
}

// IssueTokens creates both tokens for in and writes them as cookies. The
// access token is also returned in a JSON body.
func IssueTokens(w http.ResponseWriter, r *http.Request, engine *goToken.Engine, in goToken.Input, opts SessionOptions) error {
	tokens, err := engine.CreateTokens(r.Context(), in)
	if err != nil {
		return err
	}

	cfg := engine.Config()
	setTokenCookie(w, cfg.Transport.AccessCookieName, tokens.AccessToken, opts.AccessCookie)
	setTokenCookie(w, cfg.Transport.RefreshCookieName, tokens.RefreshToken, opts.RefreshCookie)
	writeTokenResponse(w, tokens.AccessToken, tokens.Payload)
	return nil
}

// RefreshHandler mints a new access token from the refresh-token cookie.
// The refresh cookie is rewritten before every lookup so its browser lifetime
// restarts; an unknown or expired refresh token clears it and yields 401.
func RefreshHandler(engine *goToken.Engine, opts SessionOptions) http.Handler {
	cfg := engine.Config()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		refreshToken, ok := engine.GetRefreshToken(goToken.HTTPRequest(r))
		if !ok {
			opts.logger().Debug("goToken: refresh rejected", slog.Any("error", goToken.ErrMissingRefreshCookie))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rec, err := engine.GetPayload(r.Context(), refreshToken, func() {
			setTokenCookie(w, cfg.Transport.RefreshCookieName, refreshToken, opts.RefreshCookie)
		})
		if err != nil {
			opts.logger().Warn("goToken: refresh lookup failed", slog.Any("error", err))
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		if rec == nil {
			clearTokenCookie(w, cfg.Transport.RefreshCookieName, opts.RefreshCookie)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in := goToken.Input{SubjectID: rec.SubjectID, TenantID: rec.TenantID}
		if opts.Resolve != nil {
			in, err = opts.Resolve(r.Context(), rec)
			if err != nil {
				opts.logger().Warn("goToken: refresh resolve failed", slog.Any("error", err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		res, err := engine.CreateAccessToken(r.Context(), in)
		if err != nil {
			opts.logger().Warn("goToken: access token reissue failed", slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		setTokenCookie(w, cfg.Transport.AccessCookieName, res.AccessToken, opts.AccessCookie)
		writeTokenResponse(w, res.AccessToken, res.Payload)
	})
}

// LogoutHandler removes the refresh token named by the cookie and clears both
// token cookies. It responds 204 whether or not a token was present.
func LogoutHandler(engine *goToken.Engine, opts SessionOptions) http.Handler {
	cfg := engine.Config()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if refreshToken, ok := engine.GetRefreshToken(goToken.HTTPRequest(r)); ok {
			if _, err := engine.RemoveRefreshToken(r.Context(), refreshToken); err != nil {
				if errors.Is(err, goToken.ErrStoreUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}

		clearTokenCookie(w, cfg.Transport.AccessCookieName, opts.AccessCookie)
		clearTokenCookie(w, cfg.Transport.RefreshCookieName, opts.RefreshCookie)
		w.WriteHeader(http.StatusNoContent)
	})
}
