// Package persist keeps the durable session record across restarts.
package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when no session record has been saved.
var ErrNotFound = errors.New("session record not found")

// SessionStorage stores one opaque session record. Save replaces the whole record.
type SessionStorage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
	Clear(ctx context.Context) error
}

// Memory is an in-process SessionStorage.
type Memory struct {
	mu      sync.Mutex
	payload []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(m.payload))
	copy(out, m.payload)
	return out, nil
}

func (m *Memory) Save(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte(nil), payload...)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = nil
	return nil
}
