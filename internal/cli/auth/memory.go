package auth

import "sync"

// MemoryStore keeps credentials in process memory. Used by tests and by
// --no-keyring runs where nothing should outlive the process.
type MemoryStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

func (m *MemoryStore) Save(serverURL, kind, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[getKeyringKey(serverURL, kind)] = secret
	return nil
}

func (m *MemoryStore) Load(serverURL, kind string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[getKeyringKey(serverURL, kind)]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

func (m *MemoryStore) Delete(serverURL, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, getKeyringKey(serverURL, kind))
	return nil
}
