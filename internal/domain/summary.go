package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary aggregates the entries of one slice of the ledger.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetBalance   decimal.Decimal // TotalIncome - TotalExpense
	EntryCount   int
}

// Add folds one entry into the summary.
func (s *Summary) Add(e *Entry) {
	switch e.Kind {
	case KindIncome:
		s.TotalIncome = s.TotalIncome.Add(e.Amount)
	case KindExpense:
		s.TotalExpense = s.TotalExpense.Add(e.Amount)
	default:
		return
	}
	s.NetBalance = s.TotalIncome.Sub(s.TotalExpense)
	s.EntryCount++
}

// PeriodSummary is a Summary bound to a calendar period [Start, End).
type PeriodSummary struct {
	Label     string
	Start     time.Time
	End       time.Time
	Year      int
	Month     int    // 1-12 for monthly periods, 0 otherwise
	MonthName string // set for monthly periods
	Summary
}

// TotalSummary covers the whole ledger.
type TotalSummary struct {
	Summary
	CurrentBalance decimal.Decimal
}

// BalanceOverview pairs a period with the ledger's current balance.
type BalanceOverview struct {
	Period         PeriodSummary
	CurrentBalance decimal.Decimal
}

// SummaryPage is one page of non-empty period summaries, most recent first.
type SummaryPage struct {
	Items        []PeriodSummary
	CurrentPage  int
	TotalPages   int
	TotalRecords int
	HasNext      bool
	HasPrevious  bool

	// SkippedPeriods lists candidate periods left out because they failed to compute.
	SkippedPeriods []string
}

// EntryPage is one page of entries, most recent first.
type EntryPage struct {
	Items        []*Entry
	CurrentPage  int
	TotalPages   int
	TotalRecords int
}
