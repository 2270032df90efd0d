package report

import (
	"fmt"
	"time"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

const (
	labelDay   = "2006-01-02"
	labelMonth = "2006-01"
)

// period is a half-open calendar window [start, end).
type period struct {
	label string
	start time.Time
	end   time.Time
	year  int
	month int // 0 unless the period is a calendar month
}

func (p period) summary(s domain.Summary) *domain.PeriodSummary {
	ps := &domain.PeriodSummary{
		Label:   p.label,
		Start:   p.start,
		End:     p.end,
		Year:    p.year,
		Month:   p.month,
		Summary: s,
	}
	if p.month != 0 {
		ps.MonthName = time.Month(p.month).String()
	}
	return ps
}

func rangePeriod(start, end time.Time) period {
	return period{
		label: start.Format(labelDay) + ".." + end.Format(labelDay),
		start: start,
		end:   end,
		year:  start.Year(),
	}
}

// dayPeriod truncates date to midnight in the date's own location.
func dayPeriod(date time.Time) period {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return period{
		label: start.Format(labelDay),
		start: start,
		end:   start.AddDate(0, 0, 1),
		year:  start.Year(),
	}
}

func weekPeriod(start time.Time) period {
	end := start.AddDate(0, 0, 7)
	return period{
		label: fmt.Sprintf("week of %s", start.Format(labelDay)),
		start: start,
		end:   end,
		year:  start.Year(),
	}
}

func monthPeriod(year, month int, loc *time.Location) period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return period{
		label: start.Format(labelMonth),
		start: start,
		end:   start.AddDate(0, 1, 0),
		year:  year,
		month: month,
	}
}

func yearPeriod(year int, loc *time.Location) period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return period{
		label: fmt.Sprintf("%04d", year),
		start: start,
		end:   start.AddDate(1, 0, 0),
		year:  year,
	}
}

// recentMonths returns the n calendar months ending with the one containing
// now, most recent first.
func recentMonths(now time.Time, n int) []period {
	out := make([]period, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < n; i++ {
		m := first.AddDate(0, -i, 0)
		out = append(out, monthPeriod(m.Year(), int(m.Month()), now.Location()))
	}
	return out
}

// recentYears returns the n calendar years ending with the current one, most
// recent first.
func recentYears(now time.Time, n int) []period {
	out := make([]period, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, yearPeriod(now.Year()-i, now.Location()))
	}
	return out
}

func validateMonth(year, month int) error {
	if err := validateYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return domain.NewValidationError("month", fmt.Sprintf("%d is not between 1 and 12", month))
	}
	return nil
}

func validateYear(year int) error {
	if year < domain.MinYear || year > domain.MaxYear {
		return domain.NewValidationError("year", fmt.Sprintf("%d is out of range", year))
	}
	return nil
}
