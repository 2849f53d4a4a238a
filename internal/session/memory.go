package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// MemoryStore keeps sessions in process. Entries expire ttl after their last
// Save, and are stored encoded so loads never share state.
type MemoryStore struct {
	cache *otter.Cache[string, []byte]
}

func NewMemoryStore(ttl time.Duration, maxSessions int) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 10_000
	}
	return &MemoryStore{
		cache: otter.Must(&otter.Options[string, []byte]{
			MaximumSize:      maxSessions,
			ExpiryCalculator: otter.ExpiryWriting[string, []byte](ttl),
		}),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	data, ok := m.cache.GetIfPresent(id)
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.cache.Set(s.ID, data)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Invalidate(id)
	return nil
}

func encode(s *Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("session without id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
