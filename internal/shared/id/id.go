// Package id provides centralized ID generation for the service.
//
// All identifiers are ULIDs: lexicographically sortable, so log records and
// snippets order correctly by creation time without a separate sequence
// column, and prefixed per type (log_*, pen_*, sess_*) so a stray ID in a
// log line is immediately attributable.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// LogID identifies a console log record.
type LogID string

// SnippetID identifies a saved snippet ("pen").
type SnippetID string

// SessionID identifies a saved workspace session.
type SessionID string

const (
	LogPrefix     = "log"
	SnippetPrefix = "pen"
	SessionPrefix = "sess"
)

// Generator mints ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate mints a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString mints a new ULID string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix mints a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewLogID mints a log record ID.
func NewLogID() LogID {
	return LogID(Default().GenerateWithPrefix(LogPrefix))
}

// NewSnippetID mints a snippet ID.
func NewSnippetID() SnippetID {
	return SnippetID(Default().GenerateWithPrefix(SnippetPrefix))
}

// NewSessionID mints a session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

func (id LogID) String() string     { return string(id) }
func (id SnippetID) String() string { return string(id) }
func (id SessionID) String() string { return string(id) }

// IsValid checks whether s is a bare ULID.
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the embedded creation time from a bare ULID string.
func Timestamp(s string) (time.Time, error) {
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
