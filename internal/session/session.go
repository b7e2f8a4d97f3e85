package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds the current auth credential for the signed-in user. The token is
// read at call time by the dispatcher, so a credential refreshed between
// enqueue and replay is the one used for replay.
type Store struct {
	path string

	mu     sync.RWMutex
	loaded bool
	token  string
}

type sessionFile struct {
	Token string `json:"token"`
}

// NewStore creates a session store backed by the given file path. The file is
// created lazily on the first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Current returns the active bearer token, if any.
func (s *Store) Current() (string, bool) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token, s.token != ""
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.token = s.readFile()
		s.loaded = true
	}
	return s.token, s.token != ""
}

// Save persists a new credential, replacing any previous one.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: token cannot be empty")
	}

	data, err := json.Marshal(sessionFile{Token: token})
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("session: create directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Clear forgets the stored credential.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	s.mu.Lock()
	s.token = ""
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) readFile() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var parsed sessionFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Token)
}
