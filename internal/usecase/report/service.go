// Package report aggregates ledger entries into calendar period summaries.
// It only reads from storage and never waits for the ledger write lock.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// MonthlyWindow and YearlyWindow are the candidate periods of the paginated views.
	MonthlyWindow = 12
	YearlyWindow  = 4

	DefaultPageSize = 5
	MaxPageSize     = 100

	defaultConcurrency = 4
)

// BalanceSource reports the ledger's current balance
type BalanceSource interface {
	CurrentBalance(ctx context.Context) (decimal.Decimal, error)
}

// ReportService computes period summaries on demand
type ReportService struct {
	Entries  domain.EntryReader
	Balances BalanceSource
	Logger   logrus.FieldLogger

	// Location anchors calendar months and years. Daily and weekly windows use
	// the location of the date they are given.
	Location *time.Location
	Now      func() time.Time

	// Strict makes paginated views fail on the first period that cannot be
	// computed instead of skipping it.
	Strict bool

	// Concurrency bounds the periods computed in parallel by paginated views.
	Concurrency int
}

// NewReportService creates a new ReportService instance
func NewReportService(entries domain.EntryReader, balances BalanceSource, logger logrus.FieldLogger) *ReportService {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &ReportService{
		Entries:     entries,
		Balances:    balances,
		Logger:      logger.WithField("component", "report"),
		Location:    time.UTC,
		Now:         time.Now,
		Concurrency: defaultConcurrency,
	}
}

// SummarizeRange aggregates the entries with start <= OccurredAt < end.
// An empty range yields a zero summary.
func (s *ReportService) SummarizeRange(ctx context.Context, start, end time.Time) (*domain.PeriodSummary, error) {
	if end.Before(start) {
		return nil, domain.NewValidationError("end", "must not be before start")
	}
	return s.summarize(ctx, rangePeriod(start, end))
}

// Daily summarizes the calendar day containing date
func (s *ReportService) Daily(ctx context.Context, date time.Time) (*domain.PeriodSummary, error) {
	return s.summarize(ctx, dayPeriod(date))
}

// Weekly summarizes the seven days starting at start. start is used as given.
func (s *ReportService) Weekly(ctx context.Context, start time.Time) (*domain.PeriodSummary, error) {
	return s.summarize(ctx, weekPeriod(start))
}

// Monthly summarizes a calendar month; month is 1-indexed
func (s *ReportService) Monthly(ctx context.Context, year, month int) (*domain.PeriodSummary, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	return s.summarize(ctx, monthPeriod(year, month, s.Location))
}

// Yearly summarizes a calendar year
func (s *ReportService) Yearly(ctx context.Context, year int) (*domain.PeriodSummary, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return s.summarize(ctx, yearPeriod(year, s.Location))
}

// Total summarizes the whole ledger together with its current balance
func (s *ReportService) Total(ctx context.Context) (*domain.TotalSummary, error) {
	entries, err := s.Entries.FindAll(ctx, domain.SortAscending, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	var total domain.TotalSummary
	for _, e := range entries {
		total.Add(e)
	}

	total.CurrentBalance, err = s.Balances.CurrentBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}
	return &total, nil
}

// CurrentMonthOverview summarizes the current calendar month
func (s *ReportService) CurrentMonthOverview(ctx context.Context) (*domain.BalanceOverview, error) {
	now := s.now()
	return s.overview(ctx, monthPeriod(now.Year(), int(now.Month()), s.Location))
}

// CurrentYearOverview summarizes the current calendar year
func (s *ReportService) CurrentYearOverview(ctx context.Context) (*domain.BalanceOverview, error) {
	return s.overview(ctx, yearPeriod(s.now().Year(), s.Location))
}

// PaginatedMonthly pages through the non-empty months among the last twelve,
// most recent first.
func (s *ReportService) PaginatedMonthly(ctx context.Context, page, pageSize int) (*domain.SummaryPage, error) {
	return s.paginate(ctx, recentMonths(s.now(), MonthlyWindow), page, pageSize)
}

// PaginatedYearly pages through the non-empty years among the last four,
// most recent first.
func (s *ReportService) PaginatedYearly(ctx context.Context, page, pageSize int) (*domain.SummaryPage, error) {
	return s.paginate(ctx, recentYears(s.now(), YearlyWindow), page, pageSize)
}

// RecentMonths returns every month of the monthly window, empty ones included,
// most recent first. It backs spreadsheet exports.
func (s *ReportService) RecentMonths(ctx context.Context) ([]domain.PeriodSummary, error) {
	items, _, err := s.computeAll(ctx, recentMonths(s.now(), MonthlyWindow), true)
	return items, err
}

// RecentYears is RecentMonths for the yearly window
func (s *ReportService) RecentYears(ctx context.Context) ([]domain.PeriodSummary, error) {
	items, _, err := s.computeAll(ctx, recentYears(s.now(), YearlyWindow), true)
	return items, err
}

func (s *ReportService) now() time.Time {
	return s.Now().In(s.Location)
}

func (s *ReportService) summarize(ctx context.Context, p period) (*domain.PeriodSummary, error) {
	entries, err := s.Entries.FindInRange(ctx, p.start, p.end, domain.SortAscending)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", p.label, err)
	}

	var sum domain.Summary
	for _, e := range entries {
		sum.Add(e)
	}
	return p.summary(sum), nil
}

func (s *ReportService) overview(ctx context.Context, p period) (*domain.BalanceOverview, error) {
	summary, err := s.summarize(ctx, p)
	if err != nil {
		return nil, err
	}
	balance, err := s.Balances.CurrentBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}
	return &domain.BalanceOverview{Period: *summary, CurrentBalance: balance}, nil
}

// paginate computes every candidate, drops empty periods and slices out the
// requested page. Candidates must already be most recent first.
func (s *ReportService) paginate(ctx context.Context, candidates []period, page, pageSize int) (*domain.SummaryPage, error) {
	if page < 1 {
		return nil, domain.NewValidationError("page", "must be at least 1")
	}
	switch {
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize < 0:
		return nil, domain.NewValidationError("page_size", "must not be negative")
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	computed, skipped, err := s.computeAll(ctx, candidates, s.Strict)
	if err != nil {
		return nil, err
	}

	nonEmpty := make([]domain.PeriodSummary, 0, len(computed))
	for _, p := range computed {
		if p.EntryCount > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}

	n := len(nonEmpty)
	result := &domain.SummaryPage{
		Items:          []domain.PeriodSummary{},
		CurrentPage:    page,
		TotalPages:     (n + pageSize - 1) / pageSize,
		TotalRecords:   n,
		HasNext:        page*pageSize < n,
		HasPrevious:    page > 1,
		SkippedPeriods: skipped,
	}
	if from := (page - 1) * pageSize; from < n {
		to := min(from+pageSize, n)
		result.Items = nonEmpty[from:to]
	}
	return result, nil
}

// computeAll summarizes candidates concurrently and keeps their order. In
// strict mode the first failure is returned; otherwise failed periods are
// left out and their labels reported.
func (s *ReportService) computeAll(ctx context.Context, candidates []period, strict bool) ([]domain.PeriodSummary, []string, error) {
	results := make([]*domain.PeriodSummary, len(candidates))
	failures := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))
	for i, p := range candidates {
		g.Go(func() error {
			summary, err := s.summarize(gctx, p)
			if err != nil {
				if strict {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, domain.NewStorageError("compute period summaries", err)
	}

	out := make([]domain.PeriodSummary, 0, len(candidates))
	var skipped []string
	for i, p := range candidates {
		if failures[i] != nil {
			skipped = append(skipped, p.label)
			s.Logger.WithFields(logrus.Fields{
				"period": p.label,
			}).WithError(failures[i]).Warn("skipping period that failed to compute")
			continue
		}
		out = append(out, *results[i])
	}
	return out, skipped, nil
}
