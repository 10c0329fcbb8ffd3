package secrets

import (
	"context"
	"sync"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// Memory is an in-process Manager backed by a map, for tests and local
// development without AWS credentials.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemory constructs an empty in-memory secret manager.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) GetSecret(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[name]
	if !ok {
		return "", docerr.NotFound("secret not found")
	}
	return v, nil
}

func (m *Memory) SetSecret(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[name] = value
	return nil
}

func (m *Memory) HasSecret(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secrets[name]
	return ok, nil
}

func (m *Memory) DeleteSecret(_ context.Context, name string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, name)
	return nil
}

var _ Manager = (*Memory)(nil)
