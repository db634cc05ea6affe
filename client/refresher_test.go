package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefresherDeduplicatesConcurrentFetches(t *testing.T) {
	gate := make(chan struct{})
	r := NewRefresher(func(context.Context) (string, error) {
		<-gate
		return "tok-1", nil
	})

	const callers = 50
	var wg sync.WaitGroup
	results := make(chan string, callers)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := r.Token(context.Background())
			if err != nil {
				errs <- err
				return
			}
			results <- tok
		}()
	}

	// Let every caller attach before the fetch settles.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("Token failed: %v", err)
	}
	for tok := range results {
		if tok != "tok-1" {
			t.Fatalf("unexpected token %q", tok)
		}
	}
	if got := r.Fetches(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}

	// Cached now.
	if tok, err := r.Token(context.Background()); err != nil || tok != "tok-1" {
		t.Fatalf("cached Token = (%q, %v)", tok, err)
	}
	if got := r.Fetches(); got != 1 {
		t.Fatalf("expected cached token without fetch, got %d fetches", got)
	}
}

func TestRefresherSlotClearsAfterFailure(t *testing.T) {
	var calls atomic.Int64
	r := NewRefresher(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("network down")
		}
		return "tok-2", nil
	})

	if _, err := r.Token(context.Background()); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	tok, err := r.Token(context.Background())
	if err != nil || tok != "tok-2" {
		t.Fatalf("expected retry to succeed, got (%q, %v)", tok, err)
	}
	if got := r.Fetches(); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}

func TestRefresherEmptyTokenIsError(t *testing.T) {
	r := NewRefresher(func(context.Context) (string, error) { return "", nil })
	if _, err := r.Token(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestRefresherCallerCancellationDoesNotCancelFetch(t *testing.T) {
	gate := make(chan struct{})
	r := NewRefresher(func(ctx context.Context) (string, error) {
		<-gate
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "tok-3", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Token(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	waiter := make(chan string, 1)
	go func() {
		tok, _ := r.Token(context.Background())
		waiter <- tok
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	select {
	case tok := <-waiter:
		if tok != "tok-3" {
			t.Fatalf("expected shared fetch to complete, got %q", tok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shared fetch")
	}
	if got := r.Fetches(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
}

func TestTransportRetriesOnceAfterUnauthorized(t *testing.T) {
	var current atomic.Value
	current.Store("fresh-1")

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+current.Load().(string) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var n atomic.Int64
	r := NewRefresher(func(context.Context) (string, error) {
		return fmt.Sprintf("fresh-%d", n.Add(1)), nil
	})
	c := &http.Client{Transport: &Transport{Refresher: r}}

	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Server rotates; the cached token is now stale.
	current.Store("fresh-2")
	resp, err = c.Post(srv.URL, "text/plain", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d", resp.StatusCode)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 server hits, got %d", got)
	}
}

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if c, err := r.Cookie("refresh_token"); err != nil || c.Value != "rt-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1"}`))
	}))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	c := &http.Client{Jar: jar}

	fetch := HTTPFetch(c, srv.URL)
	if _, err := fetch(context.Background()); err == nil {
		t.Fatal("expected fetch without refresh cookie to fail")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	jar.SetCookies(req.URL, []*http.Cookie{{Name: "refresh_token", Value: "rt-1"}})

	tok, err := fetch(context.Background())
	if err != nil || tok != "at-1" {
		t.Fatalf("fetch = (%q, %v)", tok, err)
	}
}
