package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penlabhq/penlab/internal/shared/types"
)

func bundle(js string) types.SourceBundle {
	return types.SourceBundle{JavaScript: js}
}

func TestPushAndCurrent(t *testing.T) {
	s := NewStack(0)

	_, ok := s.Current()
	assert.False(t, ok)

	s.Push(bundle("a"))
	s.Push(bundle("b"))

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "b", current.JavaScript)
	assert.Equal(t, 2, s.Len())
}

func TestUndoRedo(t *testing.T) {
	s := NewStack(0)
	s.Push(bundle("a"))
	s.Push(bundle("b"))
	s.Push(bundle("c"))

	state, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "b", state.JavaScript)

	state, ok = s.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", state.JavaScript)

	// At the beginning of history undo is a no-op.
	state, ok = s.Undo()
	assert.False(t, ok)
	assert.Equal(t, "a", state.JavaScript)

	state, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, "b", state.JavaScript)

	state, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, "c", state.JavaScript)

	// At the end of history redo is a no-op.
	state, ok = s.Redo()
	assert.False(t, ok)
	assert.Equal(t, "c", state.JavaScript)
}

func TestPushTruncatesRedoTail(t *testing.T) {
	s := NewStack(0)
	s.Push(bundle("a"))
	s.Push(bundle("b"))
	s.Push(bundle("c"))

	s.Undo()
	s.Undo()
	s.Push(bundle("d"))

	assert.False(t, s.CanRedo(), "push after undo must discard the redo tail")

	state, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "d", state.JavaScript)
	assert.Equal(t, 2, s.Len())
}

func TestDepthBound(t *testing.T) {
	s := NewStack(3)
	for i := 0; i < 10; i++ {
		s.Push(bundle(fmt.Sprintf("s%d", i)))
	}

	assert.Equal(t, 3, s.Len())

	current, _ := s.Current()
	assert.Equal(t, "s9", current.JavaScript)

	// Oldest retained state after eviction.
	s.Undo()
	state, _ := s.Undo()
	assert.Equal(t, "s7", state.JavaScript)
	assert.False(t, s.CanUndo())
}

func TestEmptyStackNoOps(t *testing.T) {
	s := NewStack(0)

	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}
