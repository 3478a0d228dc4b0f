package auth

import (
	"sync"
)

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*Session)}
}

func (m *MockStore) Store(session *Session) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if session == nil || session.Profile == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *session
	m.sessions[session.Profile] = &cp
	return nil
}

func (m *MockStore) Retrieve(profile string) (*Session, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MockStore) Delete(profile string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.sessions, profile)
	return nil
}

func (m *MockStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.sessions[profile]
	return ok
}

// Count returns the number of stored sessions
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// NewMockManager creates a Manager backed by a single MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
