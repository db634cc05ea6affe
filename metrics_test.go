package goToken

import (
	"context"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricAccessIssued)

	if got := m.Value(MetricAccessIssued); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricVerifySuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		500 * time.Microsecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		time.Second,
	}
	for _, d := range observations {
		m.Observe(MetricVerifyLatency, d)
	}
	// Only the verify histogram exists.
	m.Observe(MetricAccessIssued, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	engine := newTestEngine(t, cfg)
	ctx := context.Background()

	tokens, err := engine.CreateTokens(ctx, Input{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("CreateTokens failed: %v", err)
	}
	if _, err := engine.Verify(ctx, tokens.AccessToken); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	_, _ = engine.Verify(ctx, "garbage")
	expired := signRaw(t, gojwt.MapClaims{
		"uId": "u", "cId": "", "scope": "",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, _ = engine.Verify(ctx, expired)
	_, _ = engine.Decode(ctx, "garbage")
	_, _ = engine.GetPayload(ctx, tokens.RefreshToken, nil)
	_, _ = engine.GetPayload(ctx, "missing", nil)
	_, _ = engine.RemoveRefreshToken(ctx, tokens.RefreshToken)
	_, _ = engine.RemoveRefreshToken(ctx, tokens.RefreshToken)

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricAccessIssued:      1,
		MetricRefreshIssued:     1,
		MetricVerifySuccess:     1,
		MetricVerifyFailure:     1,
		MetricVerifyExpired:     1,
		MetricDecodeRejected:    1,
		MetricRefreshLookupHit:  1,
		MetricRefreshLookupMiss: 1,
		MetricRefreshRemoved:    1,
		MetricRefreshRemoveMiss: 1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}

	var samples uint64
	for _, v := range snap.Histograms[MetricVerifyLatency] {
		samples += v
	}
	if samples != 3 {
		t.Fatalf("expected 3 verify latency samples, got %d", samples)
	}
}

func TestMetricsSnapshotDisabledEmpty(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	snap := engine.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
