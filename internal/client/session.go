// Package client talks to the community site API and keeps the signed-in
// session on disk between invocations.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hongminglow/community-site/internal/models"
)

// ErrNoSession is returned when no one is signed in.
var ErrNoSession = errors.New("no active session")

// Session is the signed-in identity and its bearer token.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Valid reports whether the session carries a token and a user.
func (s Session) Valid() bool {
	return s.Token != "" && s.User.ID != ""
}

// IsAdmin reports whether the session user holds the admin role.
func (s Session) IsAdmin() bool {
	return s.User.Role.Satisfies(models.RoleAdmin)
}

// SessionStore persists a single session.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileSessionStore keeps the session as JSON in a user-only readable file.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// DefaultSessionPath returns ~/.config/sitectl/session.json or the OS equivalent.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "sitectl", "session.json"), nil
}

// Load returns ErrNoSession when the file is missing or holds no usable session.
func (f *FileSessionStore) Load() (Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (f *FileSessionStore) Save(s Session) error {
	if !s.Valid() {
		return ErrNoSession
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (f *FileSessionStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
