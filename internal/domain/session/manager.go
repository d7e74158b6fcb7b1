// Package session persists workspace state: the current bundle, the snippet
// it came from, and editor preferences, so a user can pick up where they
// left off.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/penlabhq/penlab/internal/shared/id"
	"github.com/penlabhq/penlab/internal/shared/types"
)

const fileSuffix = ".session.json"

var ErrNotFound = errors.New("session not found")

// Preferences holds editor-side settings restored with a session.
type Preferences struct {
	Theme    string `json:"theme,omitempty"`
	FontSize int    `json:"font_size,omitempty"`
	Vim      bool   `json:"vim,omitempty"`
}

// Session is one saved workspace.
type Session struct {
	ID          id.SessionID       `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Bundle      types.SourceBundle `json:"bundle"`
	SnippetID   *id.SnippetID      `json:"snippet_id,omitempty"`
	Preferences Preferences        `json:"preferences"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Manager handles session persistence: JSON files on disk with an in-memory
// cache in front.
type Manager struct {
	dir   string
	cache sync.Map // id.SessionID -> *Session

	mu           sync.RWMutex
	lastSaved    *time.Time
	lastRestored *time.Time
}

// SaveOptions carries optional state captured with a save.
type SaveOptions struct {
	Name        string
	Description string
	Bundle      types.SourceBundle
	SnippetID   *id.SnippetID
	Preferences Preferences
}

// NewManager creates a session manager rooted at dir, creating it if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Save captures the workspace under a new session ID.
func (m *Manager) Save(opts SaveOptions) (*Session, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "untitled"
	}

	now := time.Now().UTC()
	session := &Session{
		ID:          id.NewSessionID(),
		Name:        name,
		Description: opts.Description,
		Bundle:      opts.Bundle,
		SnippetID:   opts.SnippetID,
		Preferences: opts.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.write(session); err != nil {
		return nil, err
	}
	m.cache.Store(session.ID, session)

	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()

	return session, nil
}

// Get loads a session by ID, consulting the cache first.
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	if cached, ok := m.cache.Load(sessionID); ok {
		return cached.(*Session), nil
	}

	data, err := os.ReadFile(m.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	m.cache.Store(session.ID, &session)
	return &session, nil
}

// Restore loads a session and marks it as the most recently restored one.
func (m *Manager) Restore(sessionID id.SessionID) (*Session, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.lastRestored = &now
	m.mu.Unlock()

	return session, nil
}

// Delete removes a session from disk and cache.
func (m *Manager) Delete(sessionID id.SessionID) error {
	m.cache.Delete(sessionID)
	if err := os.Remove(m.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all saved sessions, most recently updated first.
func (m *Manager) List() ([]*Session, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		sessionID := id.SessionID(strings.TrimSuffix(entry.Name(), fileSuffix))
		session, err := m.Get(sessionID)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Stats reports manager activity for health reporting.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	m.cache.Range(func(_, _ interface{}) bool {
		count++
		return true
	})

	stats := map[string]interface{}{"cached_sessions": count}
	if m.lastSaved != nil {
		stats["last_saved"] = m.lastSaved.Format(time.RFC3339)
	}
	if m.lastRestored != nil {
		stats["last_restored"] = m.lastRestored.Format(time.RFC3339)
	}
	return stats
}

func (m *Manager) path(sessionID id.SessionID) string {
	return filepath.Join(m.dir, sessionID.String()+fileSuffix)
}

func (m *Manager) write(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(m.path(session.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
