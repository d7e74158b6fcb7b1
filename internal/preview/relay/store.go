package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/penlabhq/penlab/internal/shared/id"
	"github.com/penlabhq/penlab/internal/shared/types"
)

// Store is the host-owned, ordered sequence of log records. IDs are minted
// here at receipt, never taken from the sandbox. Records leave the store only
// through Clear or teardown.
//
// Every render cycle advances a generation counter; relayed messages tagged
// with an older generation are discarded, so a stale context that is still
// flushing output cannot interleave with the cycle that replaced it.
type Store struct {
	mu      sync.RWMutex
	records []types.LogRecord
	limit   int

	generation atomic.Uint64

	subMu   sync.Mutex
	subs    map[uint64]chan types.LogRecord
	nextSub uint64

	gen *id.Generator
}

// subscriberBuffer bounds per-subscriber fan-out. A subscriber that cannot
// keep up loses records; delivery is best-effort by contract.
const subscriberBuffer = 256

// NewStore creates a log store. limit caps resident records; zero means
// unbounded. When the cap is hit the oldest records are evicted, which is an
// operational guard on host memory, not part of the log lifecycle contract.
func NewStore(limit int) *Store {
	return &Store{
		limit: limit,
		subs:  make(map[uint64]chan types.LogRecord),
		gen:   id.Default(),
	}
}

// Advance starts a new render generation and returns it. Called once per
// render cycle, before any of that cycle's messages are relayed.
func (s *Store) Advance() uint64 {
	return s.generation.Add(1)
}

// Generation returns the current render generation.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Relay accepts one validated console message. Messages whose generation
// does not match the current one are dropped; the returned bool reports
// whether the message was accepted.
func (s *Store) Relay(msg ConsoleMessage) (types.LogRecord, bool) {
	if msg.Generation != s.generation.Load() {
		return types.LogRecord{}, false
	}
	return s.append(msg.Level, msg.Message), true
}

// Append stamps and stores a record directly, bypassing generation checks.
// Used for host-originated records such as render status notes.
func (s *Store) Append(level types.LogLevel, message string) types.LogRecord {
	return s.append(level, message)
}

func (s *Store) append(level types.LogLevel, message string) types.LogRecord {
	record := types.LogRecord{
		ID:        s.gen.GenerateWithPrefix(id.LogPrefix),
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	if s.limit > 0 && len(s.records) > s.limit {
		s.records = s.records[len(s.records)-s.limit:]
	}
	s.mu.Unlock()

	s.fanout(record)
	return record
}

// List returns a copy of the current record sequence in append order.
func (s *Store) List() []types.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.LogRecord{}, s.records...)
}

// Len returns the number of resident records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes every record. Clearing an empty store is a no-op; clearing a
// populated one always leaves it empty.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Subscribe registers a fan-out channel receiving records as they append.
func (s *Store) Subscribe() (uint64, <-chan types.LogRecord) {
	ch := make(chan types.LogRecord, subscriberBuffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	token := s.nextSub
	s.subs[token] = ch
	return token, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(token uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[token]; ok {
		delete(s.subs, token)
		close(ch)
	}
}

func (s *Store) fanout(record types.LogRecord) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- record:
		default:
		}
	}
}
