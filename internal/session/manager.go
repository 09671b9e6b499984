package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Manager issues session ids and opens their stores.
type Manager struct {
	backend Backend
}

// NewManager wraps a backend.
func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (string, Store, error) {
	id := uuid.NewString()
	if err := m.backend.Create(ctx, id); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return id, m.backend.Open(id), nil
}

// Open returns the store of an existing session and marks it as active.
func (m *Manager) Open(ctx context.Context, id string) (Store, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	ok, err := m.backend.Touch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return nil, ErrUnknownSession
	}
	return m.backend.Open(id), nil
}

// Destroy removes a session and all its keys.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.backend.Destroy(ctx, id)
}
