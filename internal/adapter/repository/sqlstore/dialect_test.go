package sqlstore

import (
	"testing"
	"time"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	query := `UPDATE entries SET balance = ?, updated_at = ? WHERE id = ?`

	assert.Equal(t, `UPDATE entries SET balance = $1, updated_at = $2 WHERE id = $3`, Postgres.Rebind(query))
	assert.Equal(t, query, SQLite.Rebind(query))
}

func TestDialect_TimeArg(t *testing.T) {
	at := time.Date(2024, 1, 5, 12, 0, 0, 42, time.UTC)

	assert.Equal(t, "02024-01-05T12:00:00.000000042Z", SQLite.timeArg(at))
	assert.Equal(t, at, Postgres.timeArg(at))

	cet := time.Date(2024, 1, 5, 13, 0, 0, 42, time.FixedZone("CET", 3600))
	assert.Equal(t, "02024-01-05T12:00:00.000000042Z", SQLite.timeArg(cet))
}

func TestSortableTime_OrdersChronologically(t *testing.T) {
	times := []time.Time{
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1500, 6, 1, 8, 30, 0, 0, time.UTC),
		time.Date(1677, 9, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 12, 0, 0, 1, time.UTC),
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for i := 1; i < len(times); i++ {
		assert.Less(t, sortableTime(times[i-1]), sortableTime(times[i]), "%s vs %s", times[i-1], times[i])
	}
	for _, at := range times {
		got, ok := parseSortableTime(sortableTime(at))
		require.True(t, ok)
		assert.True(t, at.Equal(got), "round trip of %s gave %s", at, got)
	}

	assert.Equal(t, sortableTime(time.Date(-5, 1, 1, 0, 0, 0, 0, time.UTC)), sortableTime(minSortable))
	assert.Equal(t, sortableTime(time.Date(200000, 1, 1, 0, 0, 0, 0, time.UTC)), sortableTime(maxSortable))
}

func TestTimeValue_Scan(t *testing.T) {
	want := time.Date(2024, 1, 5, 12, 0, 0, 42, time.UTC)
	local := want.In(time.FixedZone("CET", 3600))

	tests := []struct {
		name string
		src  any
	}{
		{name: "Native timestamp", src: local},
		{name: "Sortable text", src: "02024-01-05T12:00:00.000000042Z"},
		{name: "Sortable bytes", src: []byte("02024-01-05T12:00:00.000000042Z")},
		{name: "RFC3339 text", src: "2024-01-05T13:00:00.000000042+01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			require.NoError(t, timeValue{&got}.Scan(tt.src))
			assert.True(t, want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	var got time.Time
	assert.Error(t, timeValue{&got}.Scan(3.14))
	assert.Error(t, timeValue{&got}.Scan(int64(1704456000000000042)))
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, `occurred_at ASC, id ASC`, orderBy(domain.SortAscending))
	assert.Equal(t, `occurred_at DESC, id DESC`, orderBy(domain.SortDescending))
}
