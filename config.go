package goToken

import (
	"errors"
	"net/textproto"
	"strings"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/MrEthical07/goToken/scope"
)

// Config holds every construction-time setting of an [Engine]. It is copied
// by [Builder.WithConfig] and never mutated afterwards.
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	Claims    claims.FieldNames
	Scope     ScopeConfig
	Transport TransportConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the default access-token strategy.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default), "rs256", "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Leeway        time.Duration // clock-skew tolerance on exp/iat/nbf
	Issuer        string
	Audience      string
	KeyID         string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures the default refresh-token strategy.
type RefreshConfig struct {
	TTL         time.Duration
	IDFormat    refresh.IDFormat
	RedisPrefix string
}

/*
====================================
SCOPE CONFIG
====================================
*/

// ScopeConfig configures scope compaction. AdminGrants lists, in
// "resource:action" form, the grants added for an Input with Admin set.
type ScopeConfig struct {
	Registry    scope.RegistryConfig
	AdminGrants []string
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig names the header and cookies tokens are read from.
type TransportConfig struct {
	HeaderName        string
	AccessCookieName  string
	RefreshCookieName string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New]. Signing keys are
// left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Leeway:        80 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:         30 * 24 * time.Hour,
			IDFormat:    refresh.IDOpaque,
			RedisPrefix: refresh.DefaultRedisPrefix,
		},
		Claims: claims.DefaultFieldNames(),
		Scope: ScopeConfig{
			Registry: scope.RegistryConfig{
				Resources:         map[string]string{"admin": "a"},
				ResourceSeparator: scope.DefaultResourceSeparator,
				ActionSeparator:   scope.DefaultActionSeparator,
			},
			AdminGrants: []string{"admin:read", "admin:write"},
		},
		Transport: TransportConfig{
			HeaderName:        "Authorization",
			AccessCookieName:  "access_token",
			RefreshCookieName: "refresh_token",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Scope.AdminGrants = append([]string(nil), cfg.Scope.AdminGrants...)
	out.Scope.Registry.Resources = cloneStringMap(cfg.Scope.Registry.Resources)
	out.Scope.Registry.Actions = cloneStringMap(cfg.Scope.Registry.Actions)
	out.Scope.Registry.ActionOrder = append([]string(nil), cfg.Scope.Registry.ActionOrder...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the settings that do not depend on key material. Key
// parsing and scope registry checks happen in [Builder.Build].
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256", "rs256", "ed25519":
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}
	if c.JWT.Leeway >= c.JWT.AccessTTL {
		return errors.New("JWT Leeway must be shorter than AccessTTL")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must exceed JWT AccessTTL")
	}
	if strings.ContainsAny(c.Refresh.RedisPrefix, " \t\r\n") {
		return errors.New("Refresh RedisPrefix must not contain whitespace")
	}

	// Claims
	if err := c.Claims.Validate(); err != nil {
		return err
	}

	// Transport
	if c.Transport.HeaderName == "" {
		return errors.New("Transport HeaderName must be set")
	}
	if textproto.CanonicalMIMEHeaderKey(c.Transport.HeaderName) == "" {
		return errors.New("Transport HeaderName is invalid")
	}
	if c.Transport.AccessCookieName == "" || c.Transport.RefreshCookieName == "" {
		return errors.New("Transport cookie names must be set")
	}
	if c.Transport.AccessCookieName == c.Transport.RefreshCookieName {
		return errors.New("Transport access and refresh cookie names must differ")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
