package goToken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/internal/audit"
	"github.com/MrEthical07/goToken/scope"
)

// Engine composes an access strategy, a refresh strategy and the two codecs
// into the token lifecycle API.
//
// Engine holds immutable configuration plus concurrency-safe counters and is
// safe for concurrent use after [Builder.Build].
type Engine struct {
	config  Config
	access  AccessStrategy
	refresh RefreshStrategy
	claims  *claims.Codec
	scope   *scope.Codec
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	closers []func() error

	// storeKind names the refresh backend in audit metadata.
	storeKind string

	closeOnce sync.Once
}

// Close flushes the audit dispatcher and releases stores opened by the
// builder. Subsequent calls are no-ops.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.audit != nil {
			e.audit.Close()
		}
		for _, closeFn := range e.closers {
			if err := closeFn(); err != nil {
				e.logger.Warn("goToken: store close failed", slog.Any("error", err))
			}
		}
	})
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and histogram buckets.
//
// A disabled or nil engine returns empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
ISSUANCE
====================================
*/

// CreateAccessToken builds the payload for in, encodes it through the claims
// codec and signs it. The returned payload is exactly what the token embeds.
func (e *Engine) CreateAccessToken(ctx context.Context, in Input) (AccessResult, error) {
	if e == nil {
		return AccessResult{}, ErrEngineNotReady
	}

	res, err := e.createAccessToken(ctx, in)
	if err != nil {
		e.metricInc(MetricAccessFailure)
		return AccessResult{}, err
	}

	e.metricInc(MetricAccessIssued)
	e.emitAudit(ctx, AuditAccessIssued, true, res.Payload.SubjectID, res.Payload.TenantID, nil, func() map[string]string {
		return map[string]string{"scope": res.Payload.Scope}
	})
	return res, nil
}

func (e *Engine) createAccessToken(ctx context.Context, in Input) (AccessResult, error) {
	p, err := e.access.BuildPayload(in)
	if err != nil {
		return AccessResult{}, err
	}

	token, err := e.access.Create(ctx, e.claims.Encode(p))
	if err != nil {
		return AccessResult{}, err
	}

	return AccessResult{AccessToken: token, Payload: p}, nil
}

// CreateRefreshToken persists a refresh record for in and returns its opaque
// identifier. If ctx is cancelled the record may still have been stored.
func (e *Engine) CreateRefreshToken(ctx context.Context, in Input) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	token, err := e.refresh.Create(ctx, in)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return "", err
	}

	e.metricInc(MetricRefreshIssued)
	return token, nil
}

// CreateTokens creates an access token and then a refresh token for in. If
// either step fails the call fails and no token is returned.
func (e *Engine) CreateTokens(ctx context.Context, in Input) (Tokens, error) {
	if e == nil {
		return Tokens{}, ErrEngineNotReady
	}

	access, err := e.CreateAccessToken(ctx, in)
	if err != nil {
		e.emitAudit(ctx, AuditTokensFailed, false, in.SubjectID, in.TenantID, err, e.stageMetadata("access"))
		return Tokens{}, err
	}

	refreshToken, err := e.CreateRefreshToken(ctx, in)
	if err != nil {
		e.logger.Warn("goToken: refresh token persistence failed",
			slog.String("subject_id", in.SubjectID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, AuditTokensFailed, false, in.SubjectID, in.TenantID, err, e.stageMetadata("refresh"))
		return Tokens{}, err
	}

	e.emitAudit(ctx, AuditTokensIssued, true, access.Payload.SubjectID, access.Payload.TenantID, nil, e.storeMetadata)
	return Tokens{
		AccessToken:  access.AccessToken,
		RefreshToken: refreshToken,
		Payload:      access.Payload,
	}, nil
}

/*
====================================
VERIFICATION
====================================
*/

// Verify checks the token signature and expiry (within the configured
// leeway), decodes the claims and validates the scope string.
//
// Errors match ErrInvalidSignature, ErrExpired, ErrMalformedToken,
// ErrTokenInvalid or ErrMalformedClaim with errors.Is.
func (e *Engine) Verify(ctx context.Context, token string) (Payload, error) {
	if e == nil {
		return Payload{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	p, err := e.verify(ctx, token)

	if !start.IsZero() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		if errors.Is(err, ErrExpired) {
			e.metricInc(MetricVerifyExpired)
		} else {
			e.metricInc(MetricVerifyFailure)
		}
		e.emitAudit(ctx, AuditVerifyRejected, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": rejectReason(err)}
		})
		return Payload{}, err
	}

	e.metricInc(MetricVerifySuccess)
	return p, nil
}

func (e *Engine) verify(ctx context.Context, token string) (Payload, error) {
	if token == "" {
		return Payload{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	cl, err := e.access.Verify(ctx, token)
	if err != nil {
		return Payload{}, err
	}

	p, err := e.claims.Decode(cl)
	if err != nil {
		return Payload{}, err
	}

	if _, err := e.scope.Decode(p.Scope); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}

	return p, nil
}

// Decode is Verify that never fails: an empty token or any verification
// error yields false.
func (e *Engine) Decode(ctx context.Context, token string) (Payload, bool) {
	if e == nil || token == "" {
		return Payload{}, false
	}

	p, err := e.verify(ctx, token)
	if err != nil {
		e.metricInc(MetricDecodeRejected)
		e.logger.Debug("goToken: access token rejected", slog.Any("error", err))
		return Payload{}, false
	}
	return p, true
}

/*
====================================
REFRESH LOOKUP / REMOVAL
====================================
*/

// GetPayload runs reset, then looks up refreshToken. reset runs exactly once
// per call, before the lookup, whether or not a record is found; nil is
// allowed. An unknown, expired or empty token yields (nil, nil).
func (e *Engine) GetPayload(ctx context.Context, refreshToken string, reset func()) (*RefreshRecord, error) {
	if reset != nil {
		reset()
	}
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshLookupMiss)
		return nil, nil
	}

	rec, err := e.refresh.GetPayload(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshLookupFailure)
		e.logger.Warn("goToken: refresh lookup failed", slog.Any("error", err))
		e.emitAudit(ctx, AuditRefreshLookup, false, "", "", err, e.storeMetadata)
		return nil, err
	}
	if rec == nil {
		e.metricInc(MetricRefreshLookupMiss)
		return nil, nil
	}

	e.metricInc(MetricRefreshLookupHit)
	e.emitAudit(ctx, AuditRefreshLookup, true, rec.SubjectID, rec.TenantID, nil, e.storeMetadata)
	return rec, nil
}

// RemoveRefreshToken deletes refreshToken and reports whether a live record
// was removed. It is idempotent; an empty token returns false without
// touching the store.
func (e *Engine) RemoveRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	if refreshToken == "" {
		return false, nil
	}

	removed, err := e.refresh.Remove(ctx, refreshToken)
	if err != nil {
		e.logger.Warn("goToken: refresh removal failed", slog.Any("error", err))
		return false, err
	}

	if removed {
		e.metricInc(MetricRefreshRemoved)
		e.emitAudit(ctx, AuditRefreshRemoved, true, "", "", nil, e.storeMetadata)
	} else {
		e.metricInc(MetricRefreshRemoveMiss)
	}
	return removed, nil
}

/*
====================================
SCOPE
====================================
*/

// Grants expands the scope string of p.
func (e *Engine) Grants(p Payload) (scope.Set, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.scope.Decode(p.Scope)
}

// HasScope reports whether p grants action on resource.
func (e *Engine) HasScope(p Payload, resource, action string) bool {
	if e == nil {
		return false
	}
	return e.scope.Has(p.Scope, resource, action)
}

// ScopeCodec returns the codec the engine compacts grants with.
func (e *Engine) ScopeCodec() *scope.Codec {
	if e == nil {
		return nil
	}
	return e.scope
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}
