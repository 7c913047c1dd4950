package prefs

import (
	"context"
	"sync"
)

// MemoryBackend keeps namespaces in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, namespace string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data[namespace]))
	for k, v := range m.data[namespace] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryBackend) Apply(_ context.Context, namespace string, set map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string, len(set))
		m.data[namespace] = ns
	}
	for _, k := range remove {
		delete(ns, k)
	}
	for k, v := range set {
		ns[k] = v
	}
	return nil
}
