// Package audit buffers token lifecycle events and relays them to a sink.
//
// [Dispatcher] owns a bounded channel and a single delivery goroutine. When
// the buffer is full it either drops the event and counts the drop, or blocks
// the caller until space frees up or the caller's context ends. Which events
// are emitted is decided by the engine, not here.
package audit
