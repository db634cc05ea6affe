package refresh

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDFormat selects how refresh-token identifiers are generated.
type IDFormat string

const (
	// IDOpaque is 32 random bytes, base64url without padding.
	IDOpaque IDFormat = "opaque"
	// IDUUID is a random (v4) UUID.
	IDUUID IDFormat = "uuid"
	// IDULID is a monotonic, lexicographically sortable ULID.
	IDULID IDFormat = "ulid"
)

const opaqueIDSize = 32

// IDGenerator returns a new unique identifier.
type IDGenerator func() (string, error)

// NewIDGenerator returns the generator for format. "" selects IDOpaque.
func NewIDGenerator(format IDFormat) (IDGenerator, error) {
	switch format {
	case "", IDOpaque:
		return newOpaqueID, nil
	case IDUUID:
		return newUUID, nil
	case IDULID:
		g := &ulidGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
		return g.next, nil
	default:
		return nil, fmt.Errorf("unsupported refresh id format %q", format)
	}
}

func newOpaqueID() (string, error) {
	var raw [opaqueIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ulidGenerator serialises access to the monotonic entropy source, which is
// not safe for concurrent use.
type ulidGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *ulidGenerator) next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
