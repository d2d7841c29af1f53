package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoginEnforcesUniqueness(t *testing.T) {
	reg := NewRegistry()

	id, err := reg.Login("conn-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.DisplayName)
	assert.Equal(t, "conn-1", id.ConnID)

	_, err = reg.Login("conn-2", "alice")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = reg.Login("conn-2", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = reg.Login("conn-2", "bob")
	assert.NoError(t, err)
}

func TestRegistryRename(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Login("conn-1", "alice")
	require.NoError(t, err)
	_, err = reg.Login("conn-2", "bob")
	require.NoError(t, err)

	id, oldName, err := reg.Rename("conn-1", "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alice", oldName)
	assert.Equal(t, "alicia", id.DisplayName)

	// The old name is free again.
	_, err = reg.Login("conn-3", "alice")
	assert.NoError(t, err)

	// Another identity's name stays off limits.
	_, _, err = reg.Rename("conn-1", "bob")
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Renaming to the held name succeeds and reports the same old name.
	_, oldName, err = reg.Rename("conn-1", "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", oldName)

	_, _, err = reg.Rename("conn-1", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, _, err = reg.Rename("conn-9", "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Login("conn-1", "alice")
	require.NoError(t, err)

	id, ok := reg.Remove("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", id.DisplayName)

	_, ok = reg.Remove("conn-1")
	assert.False(t, ok)

	// The name is released by removal.
	_, err = reg.Login("conn-2", "alice")
	assert.NoError(t, err)
}

func TestRegistryDisplayNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, login := range []struct{ conn, name string }{
		{"c1", "mallory"}, {"c2", "alice"}, {"c3", "bob"},
	} {
		_, err := reg.Login(login.conn, login.name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alice", "bob", "mallory"}, reg.DisplayNames())
}

func TestRegistryByName(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Login("conn-1", "alice")
	require.NoError(t, err)

	id, ok := reg.ByName("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-1", id.ConnID)

	_, ok = reg.ByName("nobody")
	assert.False(t, ok)
}
