// Package session keeps the per-browser list states. A session is identified
// by a random cookie and owns one listing.State per resource kind.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
)

// DefaultTTL is how long an untouched session lives.
const DefaultTTL = 30 * time.Minute

// Store persists list states. Update serialises writers of the same
// (session, kind) key and may call fn more than once.
type Store interface {
	listing.Store
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

func stateKey(sessionID string, kind domain.Kind) string {
	return sessionID + ":" + string(kind)
}

func encodeState(s listing.State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// decodeState keeps record numbers as json.Number, as the gateway does.
func decodeState(data []byte) (listing.State, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s listing.State
	if err := dec.Decode(&s); err != nil {
		return listing.State{}, fmt.Errorf("decode state: %w", err)
	}
	if s.Items == nil {
		s.Items = []domain.Record{}
	}
	return s, nil
}
