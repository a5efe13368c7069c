package scanrange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptySelectsFullRange(t *testing.T) {
	for _, s := range []string{"", "   "} {
		r, err := Parse(s, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, r.Values())
	}
}

func TestParseMixedPieces(t *testing.T) {
	r, err := Parse("-2,5,7-10,15,46-", 1, 48)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5, 7, 8, 9, 10, 15, 46, 47, 48}, r.Values())
	assert.Equal(t, 1, r.Min())
	assert.Equal(t, 48, r.Max())
	assert.Equal(t, 11, r.Count())
}

func TestParseSingleScan(t *testing.T) {
	r, err := Parse("7", 1, 48)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, r.Values())
}

func TestParseClampsToBounds(t *testing.T) {
	r, err := Parse("1-100", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10}, r.Values())
}

func TestParseOverlapFails(t *testing.T) {
	_, err := Parse("1,2,2-5", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAscending))
}

func TestParseOpenStartAfterFirstPieceFails(t *testing.T) {
	_, err := Parse("3,-5", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestParseBadCharacterFails(t *testing.T) {
	_, err := Parse("1;5", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestParseMalformedPieceReportsPiece(t *testing.T) {
	_, err := Parse("1-2-3", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Contains(t, err.Error(), "1-2-3")
}

func TestParseStartAfterEndFails(t *testing.T) {
	_, err := Parse("5-3", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestParseOutOfBoundsPieceSelectsNothing(t *testing.T) {
	r, err := Parse("2,100-200", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, r.Values())
}

func TestParseAllOutOfBoundsIsEmpty(t *testing.T) {
	_, err := Parse("100-200", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestIterIsRestartable(t *testing.T) {
	r, err := Parse("1-3", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, r.Values())
	assert.Equal(t, []int{1, 2, 3}, r.Values())
}

func TestValuesAscendingNoDuplicates(t *testing.T) {
	r, err := Parse("-2,5,7-10,15,46-", 1, 48)
	require.NoError(t, err)
	vals := r.Values()
	for i := 1; i < len(vals); i++ {
		assert.Greater(t, vals[i], vals[i-1])
	}
	for _, v := range vals {
		assert.True(t, r.Contains(v))
	}
	assert.False(t, r.Contains(3))
	assert.False(t, r.Contains(49))
}
