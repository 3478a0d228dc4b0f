package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultProfile is used when no profile name is given
const DefaultProfile = "default"

// Session is a stored Fantia login
type Session struct {
	Profile      string    `json:"profile"`
	SessionID    string    `json:"session_id"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore stores sessions by profile name
type CredentialStore interface {
	Store(session *Session) error
	Retrieve(profile string) (*Session, error)
	Delete(profile string) error
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager: system keychain, then an encrypted
// file in the config directory, then the environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the session in the first store that accepts it
func (m *Manager) Store(session *Session) error {
	if session == nil || session.SessionID == "" {
		return errors.New("session ID is required")
	}
	if session.Profile == "" {
		session.Profile = DefaultProfile
	}
	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(session)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the session from the first store that has it
func (m *Manager) Retrieve(profile string) (*Session, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if session, err := store.Retrieve(profile); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w for profile %q", ErrCredentialsNotFound, profile)
}

// Delete removes the session from every store holding it
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		}
	}

	if !deleted {
		return fmt.Errorf("%w for profile %q", ErrCredentialsNotFound, profile)
	}
	return nil
}

// ConfigDir returns the per-user fantiadl configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "fantiadl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "fantiadl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "fantiadl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "fantiadl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskSecret masks all but the first 4 and last 4 characters
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
