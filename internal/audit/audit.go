package audit

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted by the engine.
const (
	EventAccessIssued   = "access_issued"
	EventTokensIssued   = "tokens_issued"
	EventTokensFailed   = "tokens_failed"
	EventVerifyRejected = "verify_rejected"
	EventRefreshLookup  = "refresh_lookup"
	EventRefreshRemoved = "refresh_removed"
)

// Event is one audit record. Token values never appear in an Event; the
// engine records who, when and what kind of store, not the credential.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SubjectID string            `json:"subject_id,omitempty"`
	TenantID  string            `json:"tenant_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events. Emit is called from a single
// dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer over a buffered channel. A full
// channel drops the event so a slow consumer cannot stall token issuance.
type ChannelSink struct {
	events  chan Event
	dropped atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(_ context.Context, event Event) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Dropped returns the number of events discarded because the channel was full.
func (s *ChannelSink) Dropped() uint64 {
	return s.dropped.Load()
}

// FilterSink forwards only the configured event types.
type FilterSink struct {
	next  Sink
	types map[string]struct{}
}

// NewFilterSink wraps next so it only sees eventTypes. With no types every
// failed event is forwarded and successes are dropped.
func NewFilterSink(next Sink, eventTypes ...string) *FilterSink {
	f := &FilterSink{next: next}
	if len(eventTypes) > 0 {
		f.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			f.types[t] = struct{}{}
		}
	}
	return f
}

func (f *FilterSink) Emit(ctx context.Context, event Event) {
	if f == nil || f.next == nil {
		return
	}
	if f.types == nil {
		if event.Success {
			return
		}
	} else if _, ok := f.types[event.EventType]; !ok {
		return
	}
	f.next.Emit(ctx, event)
}

// JSONWriterSink writes one JSON object per line. Metadata keys naming token
// material ("token", "jwt", "secret") are dropped before writing.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	event.Metadata = scrubMetadata(event.Metadata)

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

var sensitiveKeyParts = []string{"token", "jwt", "secret"}

func scrubMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return md
	}

	var out map[string]string
	for k := range md {
		if !isSensitiveKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(md))
			for k2, v2 := range md {
				out[k2] = v2
			}
		}
		delete(out, k)
	}
	if out == nil {
		return md
	}
	return out
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
