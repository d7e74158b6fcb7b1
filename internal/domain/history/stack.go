// Package history implements the linear undo/redo stack over source bundles.
package history

import (
	"sync"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// DefaultDepth bounds retained states when no explicit depth is given.
const DefaultDepth = 100

// Stack is a bounded linear history of SourceBundle states. Push after an
// undo truncates the redo tail, the way every editor history behaves.
type Stack struct {
	mu     sync.Mutex
	states []types.SourceBundle
	cursor int // index of the current state; -1 when empty
	depth  int
}

// NewStack creates a history stack retaining at most depth states; depth <= 0
// selects DefaultDepth.
func NewStack(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{cursor: -1, depth: depth}
}

// Push records a new current state, discarding any redo tail.
func (s *Stack) Push(bundle types.SourceBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = append(s.states[:s.cursor+1], bundle)
	if len(s.states) > s.depth {
		s.states = s.states[len(s.states)-s.depth:]
	}
	s.cursor = len(s.states) - 1
}

// Undo steps back one state. The second return is false at the beginning of
// history, in which case the current state is returned unchanged.
func (s *Stack) Undo() (types.SourceBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor <= 0 {
		return s.current(), false
	}
	s.cursor--
	return s.states[s.cursor], true
}

// Redo steps forward one state. The second return is false at the end of
// history.
func (s *Stack) Redo() (types.SourceBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 || s.cursor >= len(s.states)-1 {
		return s.current(), false
	}
	s.cursor++
	return s.states[s.cursor], true
}

// Current returns the state under the cursor.
func (s *Stack) Current() (types.SourceBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return types.SourceBundle{}, false
	}
	return s.states[s.cursor], true
}

// CanUndo reports whether a state exists before the cursor.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor > 0
}

// CanRedo reports whether a state exists past the cursor.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor >= 0 && s.cursor < len(s.states)-1
}

// Len returns the number of retained states.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *Stack) current() types.SourceBundle {
	if s.cursor < 0 {
		return types.SourceBundle{}
	}
	return s.states[s.cursor]
}
