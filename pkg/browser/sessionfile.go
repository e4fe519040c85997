package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionPointer is the small sidecar record written on fresh launch and
// removed on teardown. The next invocation reads it to decide whether to
// reattach to a running browser instead of relaunching.
type SessionPointer struct {
	Port      int       `json:"port"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// PointerStore persists the session pointer as a whole file, written
// atomically so a crashed writer can never leave a torn record.
type PointerStore struct {
	path string
}

// NewPointerStore creates a store at the given path. An empty path defaults
// to ~/.walletflow/session.json.
func NewPointerStore(path string) (*PointerStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".walletflow", "session.json")
	}
	return &PointerStore{path: path}, nil
}

// Load reads the pointer. A missing file returns (nil, nil).
func (s *PointerStore) Load() (*SessionPointer, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session pointer: %w", err)
	}

	var pointer SessionPointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return nil, fmt.Errorf("failed to decode session pointer: %w", err)
	}
	return &pointer, nil
}

// Save writes the pointer atomically (temp file + rename).
func (s *PointerStore) Save(pointer SessionPointer) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create session pointer directory: %w", err)
	}

	data, err := json.MarshalIndent(pointer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session pointer: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp session pointer: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp session pointer: %w", err)
	}
	return nil
}

// Clear removes the pointer. Missing file is not an error.
func (s *PointerStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session pointer: %w", err)
	}
	return nil
}

// Path returns the pointer file location.
func (s *PointerStore) Path() string {
	return s.path
}
