package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a read-only session from FANTIADL_SESSION_ID
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session for any profile
func (e *EnvironmentStore) Retrieve(profile string) (*Session, error) {
	sessionID := os.Getenv("FANTIADL_SESSION_ID")
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}

	return &Session{
		Profile:      profile,
		SessionID:    sessionID,
		UserAgent:    os.Getenv("FANTIADL_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists reports whether FANTIADL_SESSION_ID is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv("FANTIADL_SESSION_ID") != ""
}
