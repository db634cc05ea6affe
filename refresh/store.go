package refresh

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps transport or driver failures of a backing store.
	ErrUnavailable = errors.New("refresh store unavailable")
	// ErrDuplicateID is returned by Create when the identifier is already taken.
	ErrDuplicateID = errors.New("refresh token id already exists")
	// ErrExpiredRecord is returned by Create for a record that is already expired.
	ErrExpiredRecord = errors.New("refresh record already expired")
)

// Store persists refresh records keyed by opaque identifier.
//
// Get returns (nil, nil) when the identifier is unknown or its record has
// expired. Delete reports whether a live record existed and was removed;
// deleting an unknown identifier is not an error.
type Store interface {
	Create(ctx context.Context, id string, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Sweeper is implemented by stores that need an explicit expiry sweep.
// RedisStore relies on key TTLs and does not implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
