package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penlabhq/penlab/internal/shared/types"
)

func TestAppendMintsOrderedIDs(t *testing.T) {
	store := NewStore(0)

	first := store.Append(types.LevelLog, "one")
	second := store.Append(types.LevelLog, "two")

	assert.True(t, strings.HasPrefix(first.ID, "log_"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEmpty(t, first.Timestamp)

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0].Message)
	assert.Equal(t, "two", records[1].Message)
}

func TestClearIdempotent(t *testing.T) {
	store := NewStore(0)

	// Clearing an empty store is a no-op.
	store.Clear()
	assert.Zero(t, store.Len())

	store.Append(types.LevelError, "boom")
	store.Append(types.LevelInfo, "note")

	store.Clear()
	assert.Zero(t, store.Len())

	// Clearing again stays empty.
	store.Clear()
	assert.Zero(t, store.Len())
}

func TestRelayDropsStaleGeneration(t *testing.T) {
	store := NewStore(0)
	stale := store.Advance()
	current := store.Advance()

	_, ok := store.Relay(ConsoleMessage{Level: types.LevelLog, Message: "old", Generation: stale})
	assert.False(t, ok, "message from a replaced render cycle must be discarded")

	record, ok := store.Relay(ConsoleMessage{Level: types.LevelLog, Message: "new", Generation: current})
	require.True(t, ok)
	assert.Equal(t, "new", record.Message)

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Message)
}

func TestRelayOnlyCurrentCycleSurvivesReRender(t *testing.T) {
	store := NewStore(0)

	genA := store.Advance()
	store.Relay(ConsoleMessage{Level: types.LevelLog, Message: "from A", Generation: genA})

	genB := store.Advance()
	// A's context flushes late, after B has started.
	_, ok := store.Relay(ConsoleMessage{Level: types.LevelLog, Message: "late from A", Generation: genA})
	assert.False(t, ok)
	store.Relay(ConsoleMessage{Level: types.LevelLog, Message: "from B", Generation: genB})

	messages := []string{}
	for _, r := range store.List() {
		messages = append(messages, r.Message)
	}
	assert.Equal(t, []string{"from A", "from B"}, messages)
}

func TestSubscribeReceivesAppends(t *testing.T) {
	store := NewStore(0)
	token, ch := store.Subscribe()
	defer store.Unsubscribe(token)

	record := store.Append(types.LevelWarn, "heads up")

	got := <-ch
	assert.Equal(t, record, got)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore(0)
	token, ch := store.Subscribe()
	store.Unsubscribe(token)

	_, open := <-ch
	assert.False(t, open)
}

func TestLimitEvictsOldest(t *testing.T) {
	store := NewStore(2)

	store.Append(types.LevelLog, "one")
	store.Append(types.LevelLog, "two")
	store.Append(types.LevelLog, "three")

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, "two", records[0].Message)
	assert.Equal(t, "three", records[1].Message)
}
