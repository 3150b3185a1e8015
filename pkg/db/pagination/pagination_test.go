package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct{ ID string }

func TestNormalize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.Normalize().Limit)
	require.Equal(t, MaxLimit, Pagination{Limit: 1000}.Normalize().Limit)
	require.Equal(t, 42, Pagination{Limit: 42}.Normalize().Limit)
}

func TestCursorRoundTrip(t *testing.T) {
	encoded, err := EncodeCursor(Cursor{ID: "p42"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.Equal(t, "p42", cursor.ID)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)
}

func TestBuildCursorPageInfoTrimsLookahead(t *testing.T) {
	rows := []*row{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	extract := func(r *row) Cursor { return Cursor{ID: r.ID} }

	page, info, err := BuildCursorPageInfo(rows, 2, extract)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextCursor)
	require.NoError(t, err)
	require.Equal(t, "b", cursor.ID)

	page, info, err = BuildCursorPageInfo(rows[:1], 2, extract)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.False(t, info.HasMore)
}
