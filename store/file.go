package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	scribe "github.com/goliatone/go-scribe"
)

// FileStore keeps credentials in a JSON object on disk, keyed by name.
// Other keys in the file are preserved.
type FileStore struct {
	path string
	key  string
	mu   sync.Mutex
}

var _ scribe.TokenStore = (*FileStore)(nil)

// NewFileStore returns a store writing to path under key
func NewFileStore(path, key string) *FileStore {
	if key == "" {
		key = scribe.DefaultTokenKey
	}
	return &FileStore{path: path, key: key}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return scribe.WrapStoreError("save", err)
	}
	entries[s.key] = token
	return scribe.WrapStoreError("save", s.write(entries))
}

func (s *FileStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", false, scribe.WrapStoreError("load", err)
	}
	token, ok := entries[s.key]
	return token, ok, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return scribe.WrapStoreError("clear", err)
	}
	if _, ok := entries[s.key]; !ok {
		return nil
	}
	delete(entries, s.key)
	return scribe.WrapStoreError("clear", s.write(entries))
}

func (s *FileStore) read() (map[string]string, error) {
	entries := map[string]string{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".scribe-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
