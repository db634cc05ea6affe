// Package client keeps an access token fresh on the calling side.
//
// A [Refresher] caches the current access token. When none is cached, the
// first caller starts a fetch and every concurrent caller waits on that same
// fetch; the in-flight slot is released as soon as the fetch settles, whether
// it succeeded or failed. [Transport] attaches the token to outgoing requests
// and retries once after a 401.
package client
