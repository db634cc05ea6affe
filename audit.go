package goToken

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/goToken/internal/audit"
)

// AuditEvent is one token lifecycle record delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events into a buffered channel, dropping when full.
type ChannelSink = audit.ChannelSink

// FilterSink forwards a subset of events to another sink.
type FilterSink = audit.FilterSink

// JSONWriterSink writes events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// Audit event types.
const (
	AuditAccessIssued   = audit.EventAccessIssued
	AuditTokensIssued   = audit.EventTokensIssued
	AuditTokensFailed   = audit.EventTokensFailed
	AuditVerifyRejected = audit.EventVerifyRejected
	AuditRefreshLookup  = audit.EventRefreshLookup
	AuditRefreshRemoved = audit.EventRefreshRemoved
)

// NewChannelSink returns a sink backed by a channel of the given capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewFilterSink forwards only eventTypes to next, or only failures when no
// types are given.
func NewFilterSink(next AuditSink, eventTypes ...string) *FilterSink {
	return audit.NewFilterSink(next, eventTypes...)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, subjectID, tenantID string, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		TenantID:  tenantID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) storeMetadata() map[string]string {
	md := map[string]string{"store": e.storeKind}
	if e.storeKind != storeKindStrategy {
		md["id_format"] = string(e.config.Refresh.IDFormat)
	}
	return md
}

func (e *Engine) stageMetadata(stage string) func() map[string]string {
	return func() map[string]string {
		md := e.storeMetadata()
		md["stage"] = stage
		return md
	}
}

// rejectReason classifies a verification error for audit records.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	case errors.Is(err, ErrMalformedClaim):
		return "malformed_claim"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	default:
		return "invalid"
	}
}
