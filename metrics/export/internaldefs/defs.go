package internaldefs

import (
	goToken "github.com/MrEthical07/goToken"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goToken.MetricAccessIssued, Name: "gotoken_access_issued_total", Help: "Signed access tokens."},
	{ID: goToken.MetricAccessFailure, Name: "gotoken_access_failure_total", Help: "Failed access token creations."},
	{ID: goToken.MetricRefreshIssued, Name: "gotoken_refresh_issued_total", Help: "Persisted refresh tokens."},
	{ID: goToken.MetricRefreshFailure, Name: "gotoken_refresh_failure_total", Help: "Failed refresh token creations."},
	{ID: goToken.MetricVerifySuccess, Name: "gotoken_verify_success_total", Help: "Access tokens that verified."},
	{ID: goToken.MetricVerifyFailure, Name: "gotoken_verify_failure_total", Help: "Access tokens rejected other than for expiry."},
	{ID: goToken.MetricVerifyExpired, Name: "gotoken_verify_expired_total", Help: "Access tokens rejected as expired."},
	{ID: goToken.MetricDecodeRejected, Name: "gotoken_decode_rejected_total", Help: "Soft decodes that yielded no payload."},
	{ID: goToken.MetricRefreshLookupHit, Name: "gotoken_refresh_lookup_hit_total", Help: "Refresh lookups that found a live record."},
	{ID: goToken.MetricRefreshLookupMiss, Name: "gotoken_refresh_lookup_miss_total", Help: "Refresh lookups that found nothing."},
	{ID: goToken.MetricRefreshLookupFailure, Name: "gotoken_refresh_lookup_failure_total", Help: "Refresh lookups that failed in the store."},
	{ID: goToken.MetricRefreshRemoved, Name: "gotoken_refresh_removed_total", Help: "Refresh tokens removed."},
	{ID: goToken.MetricRefreshRemoveMiss, Name: "gotoken_refresh_remove_miss_total", Help: "Removals of unknown refresh tokens."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goToken.MetricVerifyLatency, Name: "gotoken_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the
// engine's fixed buckets.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// engine bucket is the implicit +Inf one.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix is HistogramBounds in a form usable inside metric names.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into Prometheus-style
// cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
