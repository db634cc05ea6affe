package goToken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/internal/audit"
	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/MrEthical07/goToken/scope"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sqliteDSN    string
	refreshStore refresh.Store

	accessStrategy  AccessStrategy
	refreshStrategy RefreshStrategy

	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores refresh records in Redis under Config.Refresh.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSQLite stores refresh records in the SQLite database at dsn. The
// database is opened and migrated by Build and closed by [Engine.Close].
func (b *Builder) WithSQLite(dsn string) *Builder {
	b.sqliteDSN = dsn
	return b
}

// WithRefreshStore stores refresh records in store. It takes precedence over
// WithRedis and WithSQLite.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithAccessStrategy replaces the JWT access strategy.
func (b *Builder) WithAccessStrategy(s AccessStrategy) *Builder {
	b.accessStrategy = s
	return b
}

// WithRefreshStrategy replaces the store-backed refresh strategy. Store
// options are ignored when set.
func (b *Builder) WithRefreshStrategy(s RefreshStrategy) *Builder {
	b.refreshStrategy = s
	return b
}

// WithAuditSink sets the sink audit events are delivered to. Audit must also
// be enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for operational warnings. Defaults to
// slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters read by
// [Engine.MetricsSnapshot] and the exporters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses key material and wires the
// strategies. Without a store option refresh records are kept in memory.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- CODECS --------
	registry, err := scope.NewRegistry(cfg.Scope.Registry)
	if err != nil {
		return nil, fmt.Errorf("scope registry: %w", err)
	}
	scopeCodec := scope.NewCodec(registry)

	claimsCodec, err := claims.NewCodec(cfg.Claims)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		claims:  claimsCodec,
		scope:   scopeCodec,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
	}

	// -------- ACCESS STRATEGY --------
	engine.access = b.accessStrategy
	if engine.access == nil {
		adminGrants, err := scope.ParseGrants(cfg.Scope.AdminGrants)
		if err != nil {
			return nil, fmt.Errorf("admin grants: %w", err)
		}

		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.JWT.AccessTTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			KeyID:         cfg.JWT.KeyID,
		})
		if err != nil {
			return nil, err
		}

		engine.access, err = NewJWTAccessStrategy(jm, scopeCodec, adminGrants)
		if err != nil {
			return nil, err
		}
	}

	// -------- REFRESH STRATEGY --------
	engine.refresh = b.refreshStrategy
	engine.storeKind = storeKindStrategy
	if engine.refresh == nil {
		store, kind, closeFn, err := b.buildRefreshStore(cfg)
		if err != nil {
			return nil, err
		}
		engine.storeKind = kind
		if closeFn != nil {
			engine.closers = append(engine.closers, closeFn)
		}

		newID, err := refresh.NewIDGenerator(cfg.Refresh.IDFormat)
		if err != nil {
			engine.Close()
			return nil, err
		}

		engine.refresh, err = NewStoreRefreshStrategy(store, cfg.Refresh.TTL, newID)
		if err != nil {
			engine.Close()
			return nil, err
		}
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)

	b.built = true
	return engine, nil
}

// Refresh backend names recorded in audit metadata.
const (
	storeKindMemory = "memory"
	storeKindRedis  = "redis"
	storeKindSQLite = "sqlite"
	storeKindCustom = "custom"
	// storeKindStrategy marks a caller-supplied RefreshStrategy.
	storeKindStrategy = "strategy"
)

func (b *Builder) buildRefreshStore(cfg Config) (refresh.Store, string, func() error, error) {
	switch {
	case b.refreshStore != nil:
		return b.refreshStore, storeKindCustom, nil, nil
	case b.redis != nil:
		return refresh.NewRedisStore(b.redis, cfg.Refresh.RedisPrefix), storeKindRedis, nil, nil
	case b.sqliteDSN != "":
		store, err := refresh.OpenSQLite(context.Background(), b.sqliteDSN)
		if err != nil {
			return nil, "", nil, err
		}
		return store, storeKindSQLite, store.Close, nil
	default:
		return refresh.NewMemoryStore(), storeKindMemory, nil, nil
	}
}
