package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Credentials is the wallet secrets sidecar. The automation engine only ever
// reads/writes these two named fields and never logs their values.
type Credentials struct {
	// ImportSecret is the recovery phrase or private key supplied by the
	// operator. The engine reads it, never generates it.
	ImportSecret string `json:"import_secret"`

	// UnlockPassword is generated on first use and reused afterwards.
	UnlockPassword string `json:"unlock_password"`
}

// CredentialStore persists the secrets sidecar as a whole file, written
// atomically.
type CredentialStore struct {
	path string
}

// NewCredentialStore creates a store at the given path. An empty path
// defaults to ~/.walletflow/credentials.json.
func NewCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".walletflow", "credentials.json")
	}
	return &CredentialStore{path: path}, nil
}

// Load reads the sidecar. A missing file returns empty credentials.
func (s *CredentialStore) Load() (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials file: %w", err)
	}
	return creds, nil
}

// Save writes the sidecar atomically with owner-only permissions.
func (s *CredentialStore) Save(creds Credentials) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp credentials file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp credentials file: %w", err)
	}
	return nil
}

// EnsurePassword returns the stored unlock password, generating and
// persisting one when absent. The import secret is never touched.
func (s *CredentialStore) EnsurePassword() (string, error) {
	creds, err := s.Load()
	if err != nil {
		return "", err
	}
	if creds.UnlockPassword != "" {
		return creds.UnlockPassword, nil
	}

	creds.UnlockPassword = uuid.New().String()
	if err := s.Save(creds); err != nil {
		return "", err
	}
	return creds.UnlockPassword, nil
}

// Path returns the sidecar file location.
func (s *CredentialStore) Path() string {
	return s.path
}
