package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *OS {
	t.Helper()
	v, err := NewOS(t.TempDir())
	require.NoError(t, err)
	return v
}

func TestCreateRefusesOverwrite(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Create("cooling/a.md", []byte("one")))
	err := v.Create("cooling/a.md", []byte("two"))
	assert.ErrorIs(t, err, ErrExists)

	data, err := v.Read("cooling/a.md")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestMoveRefusesOccupiedDestination(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Create("raw/a.md", []byte("x")))
	require.NoError(t, v.Create("cooling/a.md", []byte("y")))
	assert.ErrorIs(t, v.Move("raw/a.md", "cooling/a.md"), ErrExists)
	// Source untouched after refused move.
	assert.True(t, v.Exists("raw/a.md"))
}

func TestMoveRelocates(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Create("raw/a.md", []byte("x")))
	require.NoError(t, v.Move("raw/a.md", "cooling/a.md"))
	assert.False(t, v.Exists("raw/a.md"))
	assert.True(t, v.Exists("cooling/a.md"))
}

func TestWriteOverwritesAtomically(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Create("raw/a.md", []byte("v1")))
	require.NoError(t, v.Write("raw/a.md", []byte("v2")))
	data, err := v.Read("raw/a.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestReadMissing(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Read("raw/nope.md")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestListOnlyMarkdownSorted(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Create("cooling/2026-08-30_002.md", nil))
	require.NoError(t, v.Create("cooling/2026-08-30_001.md", nil))
	require.NoError(t, v.Create("cooling/notes.txt", nil))

	names, err := v.List("cooling")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-30_001.md", "2026-08-30_002.md"}, names)

	empty, err := v.List("missing-dir")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
