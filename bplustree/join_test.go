package bplus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CinderDB/types"
)

type joinPair struct {
	left, right types.RowID
}

func buildJoinTree(t *testing.T, name string, entries []struct {
	key  int32
	pkey types.PrimaryKey
	row  types.RowID
}) *BPlusTree {
	t.Helper()
	tree, err := Open(filepath.Join(t.TempDir(), name), Options{
		Order:   2,
		KeySize: 4,
		Compare: CompareInt32,
	})
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	for _, e := range entries {
		_, err := tree.Insert(int32Key(e.key), e.pkey, e.row)
		require.NoError(t, err)
	}
	return tree
}

func TestNaturalJoinCrossesEqualRuns(t *testing.T) {
	left := buildJoinTree(t, "left.idx", []struct {
		key  int32
		pkey types.PrimaryKey
		row  types.RowID
	}{
		{1, 1, 11}, {2, 2, 12}, {2, 3, 13}, {3, 4, 14}, {5, 5, 15},
	})
	right := buildJoinTree(t, "right.idx", []struct {
		key  int32
		pkey types.PrimaryKey
		row  types.RowID
	}{
		{2, 1, 21}, {2, 2, 22}, {4, 3, 23}, {5, 4, 24},
	})

	var pairs []joinPair
	require.NoError(t, left.NaturalJoin(right, func(l, r types.RowID) {
		pairs = append(pairs, joinPair{l, r})
	}))

	// Key 2 crosses a 2-entry run with a 2-entry run; key 5 matches 1x1.
	assert.ElementsMatch(t, []joinPair{
		{12, 21}, {13, 21}, {12, 22}, {13, 22},
		{15, 24},
	}, pairs)
}

func TestNaturalJoinDisjointKeysEmitsNothing(t *testing.T) {
	left := buildJoinTree(t, "left.idx", []struct {
		key  int32
		pkey types.PrimaryKey
		row  types.RowID
	}{
		{1, 1, 1}, {3, 2, 2},
	})
	right := buildJoinTree(t, "right.idx", []struct {
		key  int32
		pkey types.PrimaryKey
		row  types.RowID
	}{
		{2, 1, 3}, {4, 2, 4},
	})

	count := 0
	require.NoError(t, left.NaturalJoin(right, func(_, _ types.RowID) { count++ }))
	assert.Zero(t, count)
}

func TestNaturalJoinEmptySide(t *testing.T) {
	left := buildJoinTree(t, "left.idx", []struct {
		key  int32
		pkey types.PrimaryKey
		row  types.RowID
	}{
		{1, 1, 1},
	})
	right := buildJoinTree(t, "right.idx", nil)

	count := 0
	require.NoError(t, left.NaturalJoin(right, func(_, _ types.RowID) { count++ }))
	assert.Zero(t, count)
}

func TestNaturalJoinRejectsMismatchedKeySizes(t *testing.T) {
	left := buildJoinTree(t, "left.idx", nil)
	right, err := Open(filepath.Join(t.TempDir(), "wide.idx"), Options{
		Order:   2,
		KeySize: 8,
		Compare: CompareInt64,
	})
	require.NoError(t, err)
	defer right.Close()

	err = left.NaturalJoin(right, func(_, _ types.RowID) {})
	require.Error(t, err)
}
