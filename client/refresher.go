package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyToken is returned when a fetch succeeds with an empty token.
var ErrEmptyToken = errors.New("refresh returned an empty access token")

// FetchFunc obtains a new access token, typically by calling the server's
// refresh endpoint.
type FetchFunc func(ctx context.Context) (string, error)

const fetchKey = "access"

// Refresher is a single-slot access token cache with deduplicated fetches.
// It is safe for concurrent use.
type Refresher struct {
	fetch FetchFunc
	group singleflight.Group

	mu    sync.RWMutex
	token string

	fetches atomic.Uint64
}

// NewRefresher returns a Refresher that calls fetch when no token is cached.
func NewRefresher(fetch FetchFunc) *Refresher {
	return &Refresher{fetch: fetch}
}

// Token returns the cached token, fetching one if the cache is empty.
// Concurrent callers share one fetch. A cancelled ctx stops the caller
// waiting but not the shared fetch.
func (r *Refresher) Token(ctx context.Context) (string, error) {
	r.mu.RLock()
	token := r.token
	r.mu.RUnlock()
	if token != "" {
		return token, nil
	}
	return r.refresh(ctx)
}

// Refresh discards the cached token and fetches a new one. Callers that
// arrive while a fetch is in flight join it.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	r.Invalidate()
	return r.refresh(ctx)
}

// Invalidate drops the cached token.
func (r *Refresher) Invalidate() {
	r.mu.Lock()
	r.token = ""
	r.mu.Unlock()
}

// Fetches returns how many fetches have been started.
func (r *Refresher) Fetches() uint64 {
	return r.fetches.Load()
}

func (r *Refresher) refresh(ctx context.Context) (string, error) {
	ch := r.group.DoChan(fetchKey, func() (any, error) {
		r.fetches.Add(1)

		// The fetch outlives any single caller.
		token, err := r.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", ErrEmptyToken
		}

		r.mu.Lock()
		r.token = token
		r.mu.Unlock()
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
