package kv

import "sync"

// Memory is an in-memory store with the same tab and notification semantics
// as DB. It backs tests and the dev tooling; nothing survives the process.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
	hub  hub
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// OpenTab returns a new per-tab handle onto the store.
func (m *Memory) OpenTab() *Tab {
	return newTab(m, &m.hub)
}

func (m *Memory) get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
