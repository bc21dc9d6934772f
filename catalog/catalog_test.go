package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bplus "CinderDB/bplustree"
	"CinderDB/types"
)

func intKey(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func testOptions() bplus.Options {
	return bplus.Options{Order: 2, KeySize: 4, Compare: bplus.CompareInt32}
}

func TestIndexManagerLifecycle(t *testing.T) {
	mgr, err := NewIndexManager(t.TempDir(), nil)
	require.NoError(t, err)
	defer mgr.CloseAll()

	tree, err := mgr.Create("students_primary", testOptions())
	require.NoError(t, err)

	_, err = tree.Insert(intKey(1), 1, 1)
	require.NoError(t, err)

	// Open returns the registered handle, not a second one.
	same, err := mgr.Open("students_primary", testOptions())
	require.NoError(t, err)
	assert.Same(t, tree, same)

	require.NoError(t, mgr.Close("students_primary"))

	// Reopening from disk sees the insert.
	reopened, err := mgr.Open("students_primary", testOptions())
	require.NoError(t, err)
	found, err := reopened.Search(intKey(1))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestIndexManagerCreateTwiceFails(t *testing.T) {
	mgr, err := NewIndexManager(t.TempDir(), nil)
	require.NoError(t, err)
	defer mgr.CloseAll()

	_, err = mgr.Create("idx", testOptions())
	require.NoError(t, err)
	_, err = mgr.Create("idx", testOptions())
	assert.ErrorIs(t, err, ErrIndexExists)
}

func TestIndexManagerOpenMissingFails(t *testing.T) {
	mgr, err := NewIndexManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = mgr.Open("ghost", testOptions())
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.ErrorIs(t, mgr.Close("ghost"), ErrIndexNotFound)
	assert.ErrorIs(t, mgr.Drop("ghost"), ErrIndexNotFound)
}

func TestIndexManagerDrop(t *testing.T) {
	mgr, err := NewIndexManager(t.TempDir(), nil)
	require.NoError(t, err)

	tree, err := mgr.Create("doomed", testOptions())
	require.NoError(t, err)
	_, err = tree.Insert(intKey(5), 1, types.RowID(1))
	require.NoError(t, err)

	require.NoError(t, mgr.Drop("doomed"))
	_, err = mgr.Open("doomed", testOptions())
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestIndexManagerCloseAll(t *testing.T) {
	mgr, err := NewIndexManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = mgr.Create("a", testOptions())
	require.NoError(t, err)
	_, err = mgr.Create("b", testOptions())
	require.NoError(t, err)

	require.NoError(t, mgr.CloseAll())

	// Everything can be reopened afterwards.
	_, err = mgr.Open("a", testOptions())
	require.NoError(t, err)
	require.NoError(t, mgr.CloseAll())
}
