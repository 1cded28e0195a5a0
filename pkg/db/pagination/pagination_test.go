package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        string
	CreatedAt time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	token := CursorFor("42", now)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, now.Format(time.RFC3339Nano), cursor.CreatedAt)
}

func TestPageTrimsExtraRow(t *testing.T) {
	now := time.Now().UTC()
	rows := []*row{{ID: "3", CreatedAt: now}, {ID: "2", CreatedAt: now}, {ID: "1", CreatedAt: now}}

	items, info := Page(rows, 2, func(r *row) string { return CursorFor(r.ID, r.CreatedAt) })

	assert.Len(t, items, 2)
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)
}

func TestPageLastPage(t *testing.T) {
	rows := []*row{{ID: "1"}}

	items, info := Page(rows, 10, func(r *row) string { return r.ID })

	assert.Len(t, items, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, DefaultPageSize, NormalizePageSize(-3))
	assert.Equal(t, 10, NormalizePageSize(10))
	assert.Equal(t, MaxPageSize, NormalizePageSize(MaxPageSize))
	assert.Equal(t, MaxPageSize, NormalizePageSize(300))
}

func TestPageCapsOversizedLimit(t *testing.T) {
	rows := make([]*row, MaxPageSize+1)
	for i := range rows {
		rows[i] = &row{ID: "x"}
	}

	items, info := Page(rows, 300, func(r *row) string { return r.ID })

	assert.Len(t, items, MaxPageSize)
	assert.True(t, info.HasMore)
}
