package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// DayTimeLayout is the local timestamp format of the completion log
const DayTimeLayout = "2006/01/02 15:04"

// ErrNoProgressRecord is returned when the fan club list file does not exist
var ErrNoProgressRecord = errors.New("fan club list not found")

// Entry is one fan club in the progress record
type Entry struct {
	FanclubID   string `json:"fanclub_id"`
	LastPostID  string `json:"last_post_id"`
	FanclubName string `json:"fanclub_name"`
}

// UnmarshalJSON accepts both the structured form and the legacy
// "fanclub_id:last_post_id:fanclub_name" string.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseLegacyEntry(s)
		if err != nil {
			return err
		}
		*e = parsed
		return nil
	}

	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// ParseLegacyEntry splits on the first two colons only, so names may contain ':'
func ParseLegacyEntry(s string) (Entry, error) {
	parts := strings.SplitN(s, ":", 3)
	if parts[0] == "" {
		return Entry{}, fmt.Errorf("invalid fan club entry %q: missing fan club id", s)
	}

	e := Entry{FanclubID: parts[0]}
	if len(parts) > 1 {
		e.LastPostID = parts[1]
	}
	if len(parts) > 2 {
		e.FanclubName = parts[2]
	}
	return e, nil
}

// ProgressRecord is the persisted fan club list with per-fan-club cursors
type ProgressRecord struct {
	Entries []Entry `json:"fantiadata"`
}

// Contains reports whether the record already lists fanclubID
func (r *ProgressRecord) Contains(fanclubID string) bool {
	for _, e := range r.Entries {
		if e.FanclubID == fanclubID {
			return true
		}
	}
	return false
}

// Summary is the per-fan-club line of the completion log
type Summary struct {
	FanclubID   string `json:"fanclub_id"`
	FanclubName string `json:"fanclub_name"`
	Count       int    `json:"count"`
}

// CompletionLog reports what a batch run downloaded
type CompletionLog struct {
	Summaries []Summary `json:"download-compleate"`
	DayTime   string    `json:"dayTime"`
	AllCount  int       `json:"allcount"`
}

// NewCompletionLog stamps the summaries with now and their grand total
func NewCompletionLog(summaries []Summary, now time.Time) CompletionLog {
	total := 0
	for _, s := range summaries {
		total += s.Count
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	return CompletionLog{
		Summaries: summaries,
		DayTime:   now.Format(DayTimeLayout),
		AllCount:  total,
	}
}

// Store reads and writes the batch artifacts
type Store struct {
	fs           afero.Fs
	progressPath string
	completePath string
	logger       logger.Logger
}

// NewStore creates a store for the given progress and completion log paths
func NewStore(fs afero.Fs, progressPath, completePath string, log logger.Logger) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		fs:           fs,
		progressPath: progressPath,
		completePath: completePath,
		logger:       log,
	}
}

// ProgressPath returns the fan club list location
func (s *Store) ProgressPath() string {
	return s.progressPath
}

// LoadProgress reads the fan club list
func (s *Store) LoadProgress() (ProgressRecord, error) {
	data, err := afero.ReadFile(s.fs, s.progressPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ProgressRecord{}, fmt.Errorf("%w: %s", ErrNoProgressRecord, s.progressPath)
		}
		return ProgressRecord{}, fmt.Errorf("failed to read fan club list: %w", err)
	}

	var rec ProgressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ProgressRecord{}, fmt.Errorf("failed to decode fan club list: %w", err)
	}

	s.logger.DebugWithFields("Fan club list loaded", map[string]interface{}{
		"path":     s.progressPath,
		"fanclubs": len(rec.Entries),
	})

	return rec, nil
}

// SaveProgress replaces the fan club list atomically
func (s *Store) SaveProgress(rec ProgressRecord) error {
	if rec.Entries == nil {
		rec.Entries = []Entry{}
	}
	if err := s.writeJSON(s.progressPath, rec); err != nil {
		return fmt.Errorf("failed to save fan club list: %w", err)
	}

	s.logger.DebugWithFields("Fan club list saved", map[string]interface{}{
		"path":     s.progressPath,
		"fanclubs": len(rec.Entries),
	})
	return nil
}

// SaveCompletion replaces the completion log atomically
func (s *Store) SaveCompletion(log CompletionLog) error {
	if log.Summaries == nil {
		log.Summaries = []Summary{}
	}
	if err := s.writeJSON(s.completePath, log); err != nil {
		return fmt.Errorf("failed to save completion log: %w", err)
	}

	s.logger.DebugWithFields("Completion log saved", map[string]interface{}{
		"path":     s.completePath,
		"allcount": log.AllCount,
	})
	return nil
}

// writeJSON writes v to a temporary sibling, syncs it and renames it over path
func (s *Store) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	file, err := s.fs.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := s.fs.Rename(tempPath, path); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}
