// Package export renders period summaries as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the workbooks written by WriteSummaries.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headings = []string{"Period", "Start", "End", "Income", "Expense", "Net", "Entries"}

// WriteSummaries writes one row per period to a single-sheet workbook.
func WriteSummaries(w io.Writer, sheet string, periods []domain.PeriodSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range headings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write heading %s: %w", h, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headings), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style headings: %w", err)
	}

	for r, p := range periods {
		row := []any{
			p.Label,
			p.Start.Format("2006-01-02"),
			p.End.Format("2006-01-02"),
			p.TotalIncome.InexactFloat64(),
			p.TotalExpense.InexactFloat64(),
			p.NetBalance.InexactFloat64(),
			p.EntryCount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row for %s: %w", p.Label, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "C", 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
