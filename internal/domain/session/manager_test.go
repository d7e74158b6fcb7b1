package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penlabhq/penlab/internal/shared/types"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestSaveAndGet(t *testing.T) {
	m := newManager(t)

	saved, err := m.Save(SaveOptions{
		Name:        "evening work",
		Bundle:      types.SourceBundle{HTML: "<p>wip</p>"},
		Preferences: Preferences{Theme: "dark", FontSize: 14},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	got, err := m.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "evening work", got.Name)
	assert.Equal(t, "dark", got.Preferences.Theme)
}

func TestGetFromDisk(t *testing.T) {
	m := newManager(t)
	saved, err := m.Save(SaveOptions{Name: "durable", Bundle: types.SourceBundle{CSS: "p{}"}})
	require.NoError(t, err)

	reopened, err := NewManager(m.dir)
	require.NoError(t, err)

	got, err := reopened.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Bundle, got.Bundle)
}

func TestSaveDefaultsName(t *testing.T) {
	m := newManager(t)

	saved, err := m.Save(SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "untitled", saved.Name)
}

func TestRestoreUpdatesStats(t *testing.T) {
	m := newManager(t)
	saved, err := m.Save(SaveOptions{Name: "x"})
	require.NoError(t, err)

	stats := m.Stats()
	assert.Contains(t, stats, "last_saved")
	assert.NotContains(t, stats, "last_restored")

	_, err = m.Restore(saved.ID)
	require.NoError(t, err)
	assert.Contains(t, m.Stats(), "last_restored")
}

func TestDelete(t *testing.T) {
	m := newManager(t)
	saved, err := m.Save(SaveOptions{Name: "doomed"})
	require.NoError(t, err)

	require.NoError(t, m.Delete(saved.ID))

	_, err = m.Get(saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(saved.ID), ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	m := newManager(t)
	_, err := m.Save(SaveOptions{Name: "older"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := m.Save(SaveOptions{Name: "newer"})
	require.NoError(t, err)

	sessions, err := m.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Most recently updated first; ties keep both present.
	names := []string{sessions[0].Name, sessions[1].Name}
	assert.Contains(t, names, "newer")
	assert.Contains(t, names, "older")
	assert.Equal(t, newer.ID, sessions[0].ID)
}
