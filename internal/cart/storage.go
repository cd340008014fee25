package cart

import (
	"context"
	"errors"
	"sync"
)

// StorageKey is the fixed key the cart is persisted under.
const StorageKey = "cartItems"

// ErrNoCart is returned by Storage.Read when nothing has been persisted yet.
var ErrNoCart = errors.New("no persisted cart")

// Storage is the durable home of the serialized cart.
type Storage interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, raw []byte) error
	Delete(ctx context.Context) error
}

// MemoryStorage keeps the serialized cart in process memory.
type MemoryStorage struct {
	mu  sync.Mutex
	raw []byte
	set bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Read(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrNoCart
	}
	out := make([]byte, len(m.raw))
	copy(out, m.raw)
	return out, nil
}

func (m *MemoryStorage) Write(_ context.Context, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw[:0], raw...)
	m.set = true
	return nil
}

func (m *MemoryStorage) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = nil
	m.set = false
	return nil
}
