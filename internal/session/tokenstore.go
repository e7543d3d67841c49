package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persisted token keys. The names match the original dashboard storage so a
// store file survives client upgrades.
const (
	KeyAccessToken    = "jwt_token"
	KeyRefreshToken   = "jwt_refresh_token"
	KeyUser           = "jwt_user"
	KeyAdminLoginTime = "admin_login_time"
)

// TokenStore persists session material between client runs.
type TokenStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	// Clear removes every session key in one shot.
	Clear() error
}

// fileTokenStore keeps the four session keys in a single JSON file with
// 0600 permissions, written atomically via rename.
type fileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore opens (or creates) a store at path. The parent
// directory is created on first write.
func NewFileTokenStore(path string) TokenStore {
	return &fileTokenStore{path: path}
}

// DefaultStorePath resolves the per-user location for the session file.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "provdesk", "session.json")
}

func (s *fileTokenStore) load() (map[string]string, error) {
	data := map[string]string{}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		// a corrupt store behaves like an empty one
		return map[string]string{}, nil
	}
	return data, nil
}

func (s *fileTokenStore) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *fileTokenStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := data[key]
	return v, ok && v != ""
}

func (s *fileTokenStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *fileTokenStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	delete(data, key)
	return s.save(data)
}

func (s *fileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryTokenStore is the test double: same semantics, no disk.
type MemoryTokenStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{data: map[string]string{}}
}

func (s *MemoryTokenStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok && v != ""
}

func (s *MemoryTokenStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryTokenStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]string{}
	return nil
}
