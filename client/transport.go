package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Transport is an http.RoundTripper that sends the Refresher's token as a
// bearer header. On a 401 it refreshes once and retries when the request body
// can be replayed.
type Transport struct {
	Base      http.RoundTripper
	Refresher *Refresher
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Refresher.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	token, err = t.Refresher.Refresh(req.Context())
	if err != nil {
		return resp, nil
	}

	retry := withBearer(req, token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return t.base().RoundTrip(retry)
}

func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// HTTPFetch returns a FetchFunc that POSTs to refreshURL with c, which is
// expected to carry the refresh cookie in its jar, and reads access_token
// from the JSON response.
func HTTPFetch(c *http.Client, refreshURL string) FetchFunc {
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, nil)
		if err != nil {
			return "", err
		}

		resp, err := c.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("refresh failed: %s", resp.Status)
		}

		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
			return "", errors.Join(errors.New("decode refresh response"), err)
		}
		return body.AccessToken, nil
	}
}
