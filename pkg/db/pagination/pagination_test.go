package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

func TestCursorRoundTripKeepsNanoseconds(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 891011, time.UTC)
	token := CursorFor(snowflake.ID(42), at)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	parsed, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}

func TestBuildCursorPageInfoWithLookAhead(t *testing.T) {
	now := time.Now().UTC()
	rows := []*row{{ID: 3, CreatedAt: now}, {ID: 2, CreatedAt: now}, {ID: 1, CreatedAt: now}}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return CursorFor(r.ID, r.CreatedAt) })
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	page := Trim(rows, 2)
	assert.Len(t, page, 2)

	info = BuildCursorPageInfo(rows, 5, func(r *row) string { return CursorFor(r.ID, r.CreatedAt) })
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Normalize(0))
	assert.Equal(t, 10, Normalize(10))
	assert.Equal(t, MaxPageSize, Normalize(1000))
}
