// Package sessionstore persists the opaque Telegram session token. The token
// is round-tripped byte-for-byte; an absent or blank file means the session
// is unauthenticated.
package sessionstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gotd/td/session"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/fsstore"
)

const FileName = "session.json"

type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string { return s.path }

// Load returns the persisted token. The second return reports whether a
// token exists.
func (s *Store) Load() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (string, bool, error) {
	raw, found, err := fsstore.ReadText(s.path)
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return "", false, nil
	}
	return raw, true, nil
}

func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fsstore.WriteTextAtomic(s.path, token, fsstore.FileOptions{}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("session_saved", "path", s.path, "bytes", len(token))
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fsstore.Remove(s.path)
}

// LoadSession implements gotd's telegram.SessionStorage, so the library
// restores the persisted session on connect and re-persists it after every
// successful authorization.
func (s *Store) LoadSession(_ context.Context) ([]byte, error) {
	token, found, err := s.Load()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, session.ErrNotFound
	}
	return []byte(token), nil
}

// StoreSession implements gotd's telegram.SessionStorage.
func (s *Store) StoreSession(_ context.Context, data []byte) error {
	return s.Save(string(data))
}
