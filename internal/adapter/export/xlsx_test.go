package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSummaries(t *testing.T) {
	periods := []domain.PeriodSummary{
		{
			Label: "2024-01",
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Summary: domain.Summary{
				TotalIncome:  decimal.NewFromInt(1000),
				TotalExpense: decimal.RequireFromString("200.5"),
				NetBalance:   decimal.RequireFromString("799.5"),
				EntryCount:   2,
			},
		},
		{
			Label: "2023-12",
			Start: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, "Monthly", periods))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Monthly"}, f.GetSheetList())

	rows, err := f.GetRows("Monthly")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headings, rows[0])
	assert.Equal(t, []string{"2024-01", "2024-01-01", "2024-02-01", "1000", "200.5", "799.5", "2"}, rows[1])
	assert.Equal(t, "2023-12", rows[2][0])
	assert.Equal(t, "0", rows[2][6])
}

func TestWriteSummaries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, "Yearly", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Yearly")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
