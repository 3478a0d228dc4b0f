package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Manager writes downloaded files below a root directory
type Manager struct {
	fs      afero.Fs
	root    string
	mu      sync.RWMutex
	exclude map[string]struct{}
	saved   int
}

// NewManager creates a storage manager rooted at root, creating it if needed
func NewManager(fs afero.Fs, root string) (*Manager, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		fs:      fs,
		root:    root,
		exclude: make(map[string]struct{}),
	}, nil
}

// Fs returns the underlying filesystem
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// Root returns the output directory path
func (m *Manager) Root() string {
	return m.root
}

// Path resolves rel against the output directory
func (m *Manager) Path(rel string) string {
	return filepath.Join(m.root, rel)
}

// MkdirAll creates a directory below the output directory
func (m *Manager) MkdirAll(rel string) error {
	if err := m.fs.MkdirAll(m.Path(rel), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether rel exists below the output directory
func (m *Manager) Exists(rel string) bool {
	ok, err := afero.Exists(m.fs, m.Path(rel))
	return err == nil && ok
}

// Save streams r into rel using a temporary file and an atomic rename
func (m *Manager) Save(rel string, r io.Reader) (int64, error) {
	target := m.Path(rel)
	if err := m.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := target + partSuffix
	out, err := m.fs.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		_ = m.fs.Remove(tempFile)
		return n, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if closeErr != nil {
		_ = m.fs.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := m.fs.Rename(tempFile, target); err != nil {
		_ = m.fs.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved++
	m.mu.Unlock()

	return n, nil
}

// WriteFile atomically replaces rel with data
func (m *Manager) WriteFile(rel string, data []byte) error {
	_, err := m.Save(rel, bytes.NewReader(data))
	return err
}

// Touch creates an empty marker file
func (m *Manager) Touch(rel string) error {
	f, err := m.fs.OpenFile(m.Path(rel), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	return f.Close()
}

// Remove deletes rel, ignoring a missing file
func (m *Manager) Remove(rel string) error {
	err := m.fs.Remove(m.Path(rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// SavedCount returns the number of files written through Save
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saved
}

// LoadExclusions reads a newline separated list of file names to skip.
// Blank lines are ignored.
func (m *Manager) LoadExclusions(path string) error {
	f, err := m.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open exclusion file: %w", err)
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			m.exclude[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read exclusion file: %w", err)
	}
	return nil
}

// IsExcluded reports whether a file with this base name must be skipped
func (m *Manager) IsExcluded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.exclude[filepath.Base(name)]
	return ok
}
