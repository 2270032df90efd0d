package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerflow-backend/internal/adapter/export"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

const dateLayout = "2006-01-02"

// Handler serves the REST routes on top of the ledger and report services
type Handler struct {
	Ledger  *ledger.LedgerService
	Reports *report.ReportService
}

func NewHandler(ledgerService *ledger.LedgerService, reportService *report.ReportService) *Handler {
	return &Handler{Ledger: ledgerService, Reports: reportService}
}

// ---------- requests ----------

type createEntryRequest struct {
	Amount     *decimal.Decimal `json:"amount" binding:"required"`
	Kind       string           `json:"kind" binding:"required,ledger_kind"`
	Category   string           `json:"category" binding:"omitempty,ledger_category"`
	Note       string           `json:"note" binding:"max=255"`
	OccurredAt string           `json:"occurred_at"`
}

type updateEntryRequest struct {
	Amount     *decimal.Decimal `json:"amount"`
	Kind       *string          `json:"kind" binding:"omitempty,ledger_kind"`
	Category   *string          `json:"category" binding:"omitempty,ledger_category"`
	Note       *string          `json:"note" binding:"omitempty,max=255"`
	OccurredAt *string          `json:"occurred_at"`
}

type listQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type dateQuery struct {
	Date string `form:"date" binding:"required"`
}

type weekQuery struct {
	Start string `form:"start" binding:"required"`
}

type rangeQuery struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
}

type monthQuery struct {
	Year  int `form:"year" binding:"required"`
	Month int `form:"month" binding:"required"`
}

type yearQuery struct {
	Year int `form:"year" binding:"required"`
}

type summaryPageQuery struct {
	Page     *int `form:"page"`
	PageSize int  `form:"page_size"`
}

// ---------- responses ----------

type entryResponse struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Kind       string          `json:"kind"`
	Category   domain.Category `json:"category"`
	Note       string          `json:"note"`
	OccurredAt time.Time       `json:"occurred_at"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type entryPageResponse struct {
	Data         []entryResponse `json:"data"`
	CurrentPage  int             `json:"current_page"`
	TotalPages   int             `json:"total_pages"`
	TotalRecords int             `json:"total_records"`
}

type periodResponse struct {
	Label        string          `json:"label"`
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Year         int             `json:"year"`
	Month        int             `json:"month,omitempty"`
	MonthName    string          `json:"month_name,omitempty"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetBalance   decimal.Decimal `json:"net_balance"`
	EntryCount   int             `json:"entry_count"`
}

type overviewResponse struct {
	Period         periodResponse  `json:"period"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

type totalResponse struct {
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	NetBalance     decimal.Decimal `json:"net_balance"`
	EntryCount     int             `json:"entry_count"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

type summaryPageResponse struct {
	Items          []periodResponse `json:"items"`
	CurrentPage    int              `json:"current_page"`
	TotalPages     int              `json:"total_pages"`
	TotalRecords   int              `json:"total_records"`
	HasNext        bool             `json:"has_next"`
	HasPrevious    bool             `json:"has_previous"`
	SkippedPeriods []string         `json:"skipped_periods"`
}

func toEntryResponse(e *domain.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		Amount:     e.Amount,
		Kind:       e.Kind.String(),
		Category:   e.Category,
		Note:       e.Note,
		OccurredAt: e.OccurredAt,
		Balance:    e.Balance,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func toEntryResponses(entries []*domain.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

func toPeriodResponse(p *domain.PeriodSummary) periodResponse {
	return periodResponse{
		Label:        p.Label,
		Start:        p.Start,
		End:          p.End,
		Year:         p.Year,
		Month:        p.Month,
		MonthName:    p.MonthName,
		TotalIncome:  p.TotalIncome,
		TotalExpense: p.TotalExpense,
		NetBalance:   p.NetBalance,
		EntryCount:   p.EntryCount,
	}
}

func toSummaryPageResponse(p *domain.SummaryPage) summaryPageResponse {
	items := make([]periodResponse, len(p.Items))
	for i := range p.Items {
		items[i] = toPeriodResponse(&p.Items[i])
	}
	skipped := p.SkippedPeriods
	if skipped == nil {
		skipped = []string{}
	}
	return summaryPageResponse{
		Items:          items,
		CurrentPage:    p.CurrentPage,
		TotalPages:     p.TotalPages,
		TotalRecords:   p.TotalRecords,
		HasNext:        p.HasNext,
		HasPrevious:    p.HasPrevious,
		SkippedPeriods: skipped,
	}
}

// parseTime accepts RFC 3339 or a bare date read in loc.
func parseTime(field, value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be an RFC 3339 timestamp or YYYY-MM-DD")
	}
	return t, nil
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", "must be a UUID")
	}
	return id, nil
}

// ---------- entries ----------

// CreateEntry handles POST /transactions
func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	input := ledger.CreateEntryInput{
		Amount:   *req.Amount,
		Kind:     kind,
		Category: category,
		Note:     req.Note,
	}
	if req.OccurredAt != "" {
		at, err := parseTime("occurred_at", req.OccurredAt, h.Reports.Location)
		if err != nil {
			writeError(c, err)
			return
		}
		input.OccurredAt = &at
	}

	entry, err := h.Ledger.CreateEntry(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResponse(entry))
}

// GetEntry handles GET /transactions/:id
func (h *Handler) GetEntry(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	entry, err := h.Ledger.GetEntry(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(entry))
}

// UpdateEntry handles PATCH /transactions/:id
func (h *Handler) UpdateEntry(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	input := ledger.UpdateEntryInput{Amount: req.Amount, Note: req.Note}
	if req.Kind != nil {
		kind, err := domain.ParseKind(*req.Kind)
		if err != nil {
			writeError(c, err)
			return
		}
		input.Kind = &kind
	}
	if req.Category != nil {
		category, err := domain.ParseCategory(*req.Category)
		if err != nil {
			writeError(c, err)
			return
		}
		input.Category = &category
	}
	if req.OccurredAt != nil {
		at, err := parseTime("occurred_at", *req.OccurredAt, h.Reports.Location)
		if err != nil {
			writeError(c, err)
			return
		}
		input.OccurredAt = &at
	}

	entry, err := h.Ledger.UpdateEntry(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(entry))
}

// DeleteEntry handles DELETE /transactions/:id
func (h *Handler) DeleteEntry(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.Ledger.DeleteEntry(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRecentEntries handles GET /transactions
func (h *Handler) ListRecentEntries(c *gin.Context) {
	entries, err := h.Ledger.ListRecent(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponses(entries))
}

// ListEntries handles GET /transactions/paginated
func (h *Handler) ListEntries(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.Ledger.ListPage(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entryPageResponse{
		Data:         toEntryResponses(result.Items),
		CurrentPage:  result.CurrentPage,
		TotalPages:   result.TotalPages,
		TotalRecords: result.TotalRecords,
	})
}

// RecomputeBalances handles POST /transactions/recompute
func (h *Handler) RecomputeBalances(c *gin.Context) {
	changed, err := h.Ledger.RecomputeBalances(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// CurrentBalance handles GET /balance
func (h *Handler) CurrentBalance(c *gin.Context) {
	balance, err := h.Ledger.CurrentBalance(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// ---------- reports ----------

func (h *Handler) writeSummary(c *gin.Context, summary *domain.PeriodSummary, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPeriodResponse(summary))
}

func (h *Handler) writeOverview(c *gin.Context, overview *domain.BalanceOverview, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overviewResponse{
		Period:         toPeriodResponse(&overview.Period),
		CurrentBalance: overview.CurrentBalance,
	})
}

// SummarizeRange handles GET /reports/range?start=&end=
func (h *Handler) SummarizeRange(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	start, err := parseTime("start", q.Start, h.Reports.Location)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := parseTime("end", q.End, h.Reports.Location)
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.Reports.SummarizeRange(c.Request.Context(), start, end)
	h.writeSummary(c, summary, err)
}

// Daily handles GET /reports/daily?date=
func (h *Handler) Daily(c *gin.Context) {
	var q dateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	date, err := parseTime("date", q.Date, h.Reports.Location)
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.Reports.Daily(c.Request.Context(), date)
	h.writeSummary(c, summary, err)
}

// Weekly handles GET /reports/weekly?start=
func (h *Handler) Weekly(c *gin.Context) {
	var q weekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	start, err := parseTime("start", q.Start, h.Reports.Location)
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.Reports.Weekly(c.Request.Context(), start)
	h.writeSummary(c, summary, err)
}

// Monthly handles GET /reports/monthly?year=&month=
func (h *Handler) Monthly(c *gin.Context) {
	var q monthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	summary, err := h.Reports.Monthly(c.Request.Context(), q.Year, q.Month)
	h.writeSummary(c, summary, err)
}

// Yearly handles GET /reports/yearly?year=
func (h *Handler) Yearly(c *gin.Context) {
	var q yearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	summary, err := h.Reports.Yearly(c.Request.Context(), q.Year)
	h.writeSummary(c, summary, err)
}

// Total handles GET /reports/total
func (h *Handler) Total(c *gin.Context) {
	total, err := h.Reports.Total(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totalResponse{
		TotalIncome:    total.TotalIncome,
		TotalExpense:   total.TotalExpense,
		NetBalance:     total.NetBalance,
		EntryCount:     total.EntryCount,
		CurrentBalance: total.CurrentBalance,
	})
}

// CurrentMonthOverview handles GET /monthly-summary
func (h *Handler) CurrentMonthOverview(c *gin.Context) {
	overview, err := h.Reports.CurrentMonthOverview(c.Request.Context())
	h.writeOverview(c, overview, err)
}

// CurrentYearOverview handles GET /yearly-summary
func (h *Handler) CurrentYearOverview(c *gin.Context) {
	overview, err := h.Reports.CurrentYearOverview(c.Request.Context())
	h.writeOverview(c, overview, err)
}

// PaginatedMonthly handles GET /reports/monthly/paginated?page=&page_size=
func (h *Handler) PaginatedMonthly(c *gin.Context) {
	h.paginated(c, h.Reports.PaginatedMonthly)
}

// PaginatedYearly handles GET /reports/yearly/paginated?page=&page_size=
func (h *Handler) PaginatedYearly(c *gin.Context) {
	h.paginated(c, h.Reports.PaginatedYearly)
}

func (h *Handler) paginated(c *gin.Context, fetch func(ctx context.Context, page, pageSize int) (*domain.SummaryPage, error)) {
	var q summaryPageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	page := 1
	if q.Page != nil {
		page = *q.Page
	}

	result, err := fetch(c.Request.Context(), page, q.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummaryPageResponse(result))
}

// ExportMonthly handles GET /reports/monthly/export
func (h *Handler) ExportMonthly(c *gin.Context) {
	h.export(c, "Monthly", "monthly-summaries.xlsx", h.Reports.RecentMonths)
}

// ExportYearly handles GET /reports/yearly/export
func (h *Handler) ExportYearly(c *gin.Context) {
	h.export(c, "Yearly", "yearly-summaries.xlsx", h.Reports.RecentYears)
}

func (h *Handler) export(c *gin.Context, sheet, filename string, fetch func(ctx context.Context) ([]domain.PeriodSummary, error)) {
	periods, err := fetch(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSummaries(&buf, sheet, periods); err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
