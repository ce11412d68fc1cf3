package client

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists the session token between process runs, the way
// the browser front end keeps it in local storage.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file.
type FileTokenStore struct {
	Path string
}

// DefaultTokenStore stores the token under the user's home directory.
func DefaultTokenStore() (*FileTokenStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &FileTokenStore{Path: filepath.Join(home, ".sheshield", "token")}, nil
}

func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(token), 0o600)
}

func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// NopTokenStore never persists anything; the session lives only in
// memory.
type NopTokenStore struct{}

func (NopTokenStore) Load() (string, error) { return "", nil }
func (NopTokenStore) Save(string) error     { return nil }
func (NopTokenStore) Clear() error          { return nil }
