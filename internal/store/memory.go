package store

import (
	"context"
	"sync"

	"parking-ledger/internal/parking"
)

// MemoryStore keeps the encoded state in memory. Saving round-trips through
// the same codec the durable stores use.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*parking.SystemState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	return parking.DecodeState(m.data)
}

func (m *MemoryStore) Save(ctx context.Context, state *parking.SystemState) error {
	data, err := parking.EncodeState(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data
	m.saves++
	return nil
}

func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
