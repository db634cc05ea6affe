package jwt

import (
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 using PrivateKey as the shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodRS256 signs with RSA PKCS#1 v1.5 SHA-256 using PEM keys.
	MethodRS256 SigningMethod = "rs256"
	// MethodEd25519 signs with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	minHMACSecretSize = 32
	maxLeeway         = 5 * time.Minute
)

var (
	// ErrInvalidSignature is returned when the signature does not verify or the
	// token was signed with an unexpected algorithm.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the token expired beyond the configured leeway.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when the token cannot be decoded.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalid is returned for every other validation failure
	// (issuer, audience, not-before, unknown key id).
	ErrInvalid = errors.New("invalid token")
)

// Config defines how access tokens are signed and verified.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

// Manager signs claim maps into JWTs and verifies them back.
//
// Manager holds only parsed key material and is safe for concurrent use.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

// NewManager validates cfg and parses the configured keys.
// For RS256 and Ed25519 the public key is derived from the private key when
// only the private key is supplied; a public key alone yields a verify-only
// Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACSecretSize {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHMACSecretSize)
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodRS256:
		m.method = jwt.SigningMethodRS256
		if len(cfg.PrivateKey) > 0 {
			priv, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
			if err != nil {
				return nil, errors.New("invalid rsa private key")
			}
			m.signKey = priv
			m.verifyKey = &priv.PublicKey
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
			if err != nil {
				return nil, errors.New("invalid rsa public key")
			}
			if derived, ok := m.verifyKey.(*rsa.PublicKey); ok && !derived.Equal(pub) {
				return nil, errors.New("rsa public key does not match private key")
			}
			m.verifyKey = pub
		}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
			m.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			if derived, ok := m.verifyKey.(ed25519.PublicKey); ok && !derived.Equal(pub) {
				return nil, errors.New("ed25519 public key does not match private key")
			}
			m.verifyKey = pub
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	if m.verifyKey == nil {
		return nil, fmt.Errorf("%s requires a private or public key", cfg.SigningMethod)
	}

	return m, nil
}

// Algorithm returns the JWS "alg" value, e.g. "HS256".
func (m *Manager) Algorithm() string {
	return m.method.Alg()
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// CanSign reports whether the Manager holds signing key material.
func (m *Manager) CanSign() bool {
	return m.signKey != nil
}

// Sign copies claims, adds exp/iat (and iss/aud when configured), and signs
// the result. Registered claim names in claims are overwritten.
func (m *Manager) Sign(claims map[string]any) (string, error) {
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	now := time.Now()
	mc := make(jwt.MapClaims, len(claims)+4)
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(m.config.TTL))
	if m.config.Issuer != "" {
		mc["iss"] = m.config.Issuer
	}
	if m.config.Audience != "" {
		mc["aud"] = m.config.Audience
	}

	token := jwt.NewWithClaims(m.method, mc)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	return token.SignedString(m.signKey)
}

// Parse verifies tokenStr and returns its claims. Errors wrap one of
// ErrExpired, ErrInvalidSignature, ErrMalformed or ErrInvalid.
func (m *Manager) Parse(tokenStr string) (map[string]any, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}

	return map[string]any(mc), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
