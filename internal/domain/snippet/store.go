// Package snippet persists named snippets ("pens"): a SourceBundle plus
// user-facing metadata. Code buffers are stored exactly as typed, since the
// sandbox is where untrusted code is contained, but metadata is displayed
// outside the sandbox, so names and descriptions are sanitized on the way in.
package snippet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/gzip"
	"github.com/microcosm-cc/bluemonday"

	"github.com/penlabhq/penlab/internal/shared/id"
	"github.com/penlabhq/penlab/internal/shared/types"
)

// fileSuffix is the on-disk snippet format: gzip-compressed JSON.
const fileSuffix = ".pen.gz"

var (
	ErrNotFound  = errors.New("snippet not found")
	ErrEmptyName = errors.New("snippet name required")
)

// Snippet is one saved pen.
type Snippet struct {
	ID          id.SnippetID       `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Bundle      types.SourceBundle `json:"bundle"`
	Hash        string             `json:"hash"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Store persists snippets one file per snippet under dir, with an in-memory
// cache in front of disk.
type Store struct {
	dir       string
	sanitizer *bluemonday.Policy
	cache     sync.Map // id.SnippetID -> *Snippet
}

// NewStore creates a snippet store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snippet dir: %w", err)
	}
	return &Store{
		dir:       dir,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Save creates a new snippet and writes it to disk.
func (s *Store) Save(name, description string, bundle types.SourceBundle) (*Snippet, error) {
	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, ErrEmptyName
	}

	now := time.Now().UTC()
	snip := &Snippet{
		ID:          id.NewSnippetID(),
		Name:        name,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(description)),
		Bundle:      bundle,
		Hash:        Fingerprint(bundle),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.write(snip); err != nil {
		return nil, err
	}
	s.cache.Store(snip.ID, snip)
	return snip, nil
}

// Update replaces an existing snippet's content and metadata.
func (s *Store) Update(snippetID id.SnippetID, name, description string, bundle types.SourceBundle) (*Snippet, error) {
	existing, err := s.Get(snippetID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, ErrEmptyName
	}

	updated := *existing
	updated.Name = name
	updated.Description = strings.TrimSpace(s.sanitizer.Sanitize(description))
	updated.Bundle = bundle
	updated.Hash = Fingerprint(bundle)
	updated.UpdatedAt = time.Now().UTC()

	if err := s.write(&updated); err != nil {
		return nil, err
	}
	s.cache.Store(updated.ID, &updated)
	return &updated, nil
}

// Get loads a snippet by ID, consulting the cache first.
func (s *Store) Get(snippetID id.SnippetID) (*Snippet, error) {
	if cached, ok := s.cache.Load(snippetID); ok {
		return cached.(*Snippet), nil
	}

	snip, err := s.read(s.path(snippetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.Store(snip.ID, snip)
	return snip, nil
}

// Delete removes a snippet from disk and cache.
func (s *Store) Delete(snippetID id.SnippetID) error {
	s.cache.Delete(snippetID)
	if err := os.Remove(s.path(snippetID)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete snippet: %w", err)
	}
	return nil
}

// List scans the snippet directory and returns all snippets, most recently
// updated first. The walk is parallel, so results are gathered under a lock
// and sorted afterwards.
func (s *Store) List() ([]*Snippet, error) {
	var (
		mu       sync.Mutex
		snippets []*Snippet
	)

	err := fastwalk.Walk(nil, s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), fileSuffix) {
			return err
		}
		snip, readErr := s.read(path)
		if readErr != nil {
			// A corrupt file should not hide every other snippet.
			return nil
		}
		mu.Lock()
		snippets = append(snippets, snip)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan snippets: %w", err)
	}

	sort.Slice(snippets, func(i, j int) bool {
		return snippets[i].UpdatedAt.After(snippets[j].UpdatedAt)
	})
	return snippets, nil
}

func (s *Store) path(snippetID id.SnippetID) string {
	return filepath.Join(s.dir, snippetID.String()+fileSuffix)
}

func (s *Store) write(snip *Snippet) error {
	data, err := json.Marshal(snip)
	if err != nil {
		return fmt.Errorf("failed to marshal snippet: %w", err)
	}

	f, err := os.CreateTemp(s.dir, ".pen-*")
	if err != nil {
		return fmt.Errorf("failed to create snippet file: %w", err)
	}
	defer os.Remove(f.Name())

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snippet: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush snippet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snippet file: %w", err)
	}

	if err := os.Rename(f.Name(), s.path(snip.ID)); err != nil {
		return fmt.Errorf("failed to store snippet: %w", err)
	}
	return nil
}

func (s *Store) read(path string) (*Snippet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snippet: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippet: %w", err)
	}

	var snip Snippet
	if err := json.Unmarshal(data, &snip); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snippet: %w", err)
	}
	return &snip, nil
}
