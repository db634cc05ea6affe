package goToken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func auditConfig(buffer int, dropIfFull bool) Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = buffer
	cfg.Audit.DropIfFull = dropIfFull
	return cfg
}

func TestAuditEventsForTokenLifecycle(t *testing.T) {
	sink := NewChannelSink(16)
	engine := newTestEngine(t, auditConfig(16, false), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	tokens, err := engine.CreateTokens(ctx, Input{SubjectID: "u1", TenantID: "t1"})
	if err != nil {
		t.Fatalf("CreateTokens failed: %v", err)
	}
	if _, err := engine.GetPayload(ctx, tokens.RefreshToken, nil); err != nil {
		t.Fatalf("GetPayload failed: %v", err)
	}
	if _, err := engine.RemoveRefreshToken(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("RemoveRefreshToken failed: %v", err)
	}

	want := []string{AuditAccessIssued, AuditTokensIssued, AuditRefreshLookup, AuditRefreshRemoved}
	for _, eventType := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != eventType {
				t.Fatalf("expected %s, got %s", eventType, ev.EventType)
			}
			if ev.IP != "203.0.113.7" {
				t.Fatalf("expected client ip on event, got %q", ev.IP)
			}
			if !ev.Success {
				t.Fatalf("expected success for %s", ev.EventType)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestAuditEventsNeverCarryTokens(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	engine := newTestEngine(t, auditConfig(16, false), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	tokens, err := engine.CreateTokens(ctx, Input{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("CreateTokens failed: %v", err)
	}
	_, _ = engine.Verify(ctx, tokens.AccessToken+"x")
	_, _ = engine.RemoveRefreshToken(ctx, tokens.RefreshToken)
	engine.Close()

	out := buf.String()
	if strings.Contains(out, tokens.AccessToken) || strings.Contains(out, tokens.RefreshToken) {
		t.Fatal("audit output contains token material")
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 audit lines, got %d: %s", len(lines), out)
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != AuditVerifyRejected || ev.Success || ev.Error == "" {
		t.Fatalf("unexpected verify event %+v", ev)
	}
}

func TestAuditDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	engine := newTestEngine(t, auditConfig(1, true), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := engine.CreateAccessToken(ctx, Input{SubjectID: "u"}); err != nil {
			t.Fatalf("CreateAccessToken failed: %v", err)
		}
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
	close(sink.gate)
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &countingSink{}
	engine := newTestEngine(t, testConfig(), func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.CreateTokens(context.Background(), Input{SubjectID: "u"}); err != nil {
		t.Fatalf("CreateTokens failed: %v", err)
	}
	engine.Close()

	if sink.count.Load() != 0 {
		t.Fatalf("expected no events, got %d", sink.count.Load())
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected zero drops")
	}
}

func TestAuditMetadataNamesStoreAndRejectReason(t *testing.T) {
	sink := NewChannelSink(16)
	engine := newTestEngine(t, auditConfig(16, false), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	tokens, err := engine.CreateTokens(ctx, Input{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("CreateTokens failed: %v", err)
	}
	parts := strings.Split(tokens.AccessToken, ".")
	forged := signRaw(t, gojwt.MapClaims{"uId": "attacker", "exp": time.Now().Add(time.Hour).Unix()})
	tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
	if _, err := engine.Verify(ctx, tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := engine.Verify(ctx, ""); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}

	want := []struct {
		eventType string
		key       string
		value     string
	}{
		{AuditAccessIssued, "scope", ""},
		{AuditTokensIssued, "store", "memory"},
		{AuditVerifyRejected, "reason", "signature"},
		{AuditVerifyRejected, "reason", "malformed_token"},
	}
	for _, w := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != w.eventType {
				t.Fatalf("expected %s, got %s", w.eventType, ev.EventType)
			}
			got, ok := ev.Metadata[w.key]
			if !ok || got != w.value {
				t.Fatalf("%s: expected %s=%q, got %v", w.eventType, w.key, w.value, ev.Metadata)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", w.eventType)
		}
	}
}

func TestAuditFailureMetadataNamesStage(t *testing.T) {
	sink := NewChannelSink(16)
	store := newSpyStore()
	store.failOn = "create"
	engine := newTestEngine(t, auditConfig(16, false), func(b *Builder) {
		b.WithAuditSink(sink).WithRefreshStore(store)
	})

	if _, err := engine.CreateTokens(context.Background(), Input{SubjectID: "u1"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType != AuditTokensFailed {
				continue
			}
			if ev.Metadata["stage"] != "refresh" || ev.Metadata["store"] != "custom" {
				t.Fatalf("unexpected failure metadata %v", ev.Metadata)
			}
			if ev.Metadata["id_format"] == "" {
				t.Fatal("expected id_format for the default refresh strategy")
			}
			return
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tokens_failed")
		}
	}
}

func TestRejectReason(t *testing.T) {
	cases := map[error]string{
		ErrExpired:                             "expired",
		ErrInvalidSignature:                    "signature",
		ErrMalformedToken:                      "malformed_token",
		fmt.Errorf("%w: x", ErrMalformedClaim): "malformed_claim",
		errors.New("other"):                    "invalid",
	}
	for err, want := range cases {
		if got := rejectReason(err); got != want {
			t.Fatalf("rejectReason(%v) = %q, want %q", err, got, want)
		}
	}
}
