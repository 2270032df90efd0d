package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

const testToken = "test-token-123"

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	t      *testing.T
	router http.Handler
	hook   *test.Hook
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewEntryRepository()
	ledgerService := ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, nil)
	ledgerService.Now = func() time.Time { return testNow }
	reportService := report.NewReportService(store, ledgerService, nil)
	reportService.Now = func() time.Time { return testNow }

	logger, hook := test.NewNullLogger()
	router, err := NewRouter(RouterConfig{Mode: "test", APIToken: testToken}, ledgerService, reportService, logger)
	require.NoError(t, err)

	return &testAPI{t: t, router: router, hook: hook}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) seed() {
	a.t.Helper()
	for _, body := range []map[string]any{
		{"amount": "1000", "kind": "income", "category": "salary", "occurred_at": "2024-01-05"},
		{"amount": 200, "kind": "expense", "category": "food", "occurred_at": "2024-01-10"},
		{"amount": "300", "kind": "income", "occurred_at": "2024-03-02T09:30:00Z"},
	} {
		rec := a.do(http.MethodPost, "/transactions", body)
		require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestHandler_EntryLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/transactions", map[string]any{
		"amount":      "500",
		"kind":        "expense",
		"occurred_at": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryResponse](t, rec)
	assert.Equal(t, "-500", created.Balance.String())
	assert.Equal(t, domain.CategoryOther, created.Category)

	rec = api.do(http.MethodGet, "/transactions/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPatch, "/transactions/"+created.ID.String(), map[string]any{"amount": "700", "note": "rent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[entryResponse](t, rec)
	assert.Equal(t, "-700", updated.Balance.String())
	assert.Equal(t, "rent", updated.Note)

	rec = api.do(http.MethodGet, "/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[map[string]decimal.Decimal](t, rec)
	assert.True(t, balance["balance"].Equal(decimal.NewFromInt(-700)))

	rec = api.do(http.MethodDelete, "/transactions/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/transactions/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListEntries(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	rec := api.do(http.MethodGet, "/transactions/paginated?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[entryPageResponse](t, rec)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.TotalRecords)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "1000", page.Data[0].Balance.String())

	rec = api.do(http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decode[[]entryResponse](t, rec)
	require.Len(t, recent, 3)
	assert.Equal(t, "1100", recent[0].Balance.String())

	rec = api.do(http.MethodPost, "/transactions/recompute", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"changed":0}`, rec.Body.String())
}

func TestHandler_Reports(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	rec := api.do(http.MethodGet, "/reports/monthly?year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	monthly := decode[periodResponse](t, rec)
	assert.Equal(t, "January", monthly.MonthName)
	assert.True(t, monthly.NetBalance.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, 2, monthly.EntryCount)

	rec = api.do(http.MethodGet, "/reports/yearly?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[periodResponse](t, rec).NetBalance.Equal(decimal.NewFromInt(1100)))

	rec = api.do(http.MethodGet, "/reports/daily?date=2024-01-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[periodResponse](t, rec).TotalExpense.Equal(decimal.NewFromInt(200)))

	rec = api.do(http.MethodGet, "/reports/weekly?start=2024-01-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[periodResponse](t, rec).EntryCount)

	rec = api.do(http.MethodGet, "/reports/range?start=2024-01-01&end=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[periodResponse](t, rec).EntryCount)

	rec = api.do(http.MethodGet, "/reports/total", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	total := decode[totalResponse](t, rec)
	assert.Equal(t, 3, total.EntryCount)
	assert.True(t, total.CurrentBalance.Equal(decimal.NewFromInt(1100)))

	rec = api.do(http.MethodGet, "/monthly-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[overviewResponse](t, rec)
	assert.Equal(t, "2024-03", overview.Period.Label)
	assert.True(t, overview.CurrentBalance.Equal(decimal.NewFromInt(1100)))

	rec = api.do(http.MethodGet, "/yearly-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024", decode[overviewResponse](t, rec).Period.Label)
}

func TestHandler_PaginatedSummaries(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	rec := api.do(http.MethodGet, "/reports/monthly/paginated", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[summaryPageResponse](t, rec)
	assert.Equal(t, 2, page.TotalRecords)
	assert.False(t, page.HasNext)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "2024-03", page.Items[0].Label)
	assert.Equal(t, "2024-01", page.Items[1].Label)
	assert.Empty(t, page.SkippedPeriods)

	rec = api.do(http.MethodGet, "/reports/monthly/paginated?page=100&page_size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[summaryPageResponse](t, rec)
	assert.Empty(t, page.Items)
	assert.True(t, page.HasPrevious)

	rec = api.do(http.MethodGet, "/reports/yearly/paginated?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Export(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	rec := api.do(http.MethodGet, "/reports/monthly/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "monthly-summaries.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Monthly")
	require.NoError(t, err)
	assert.Len(t, rows, 13)
}

func TestHandler_BadRequests(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantField string
	}{
		{"Missing amount", http.MethodPost, "/transactions", map[string]any{"kind": "income"}, "amount"},
		{"Unknown kind", http.MethodPost, "/transactions", map[string]any{"amount": "5", "kind": "gift"}, "kind"},
		{"Unknown category", http.MethodPost, "/transactions", map[string]any{"amount": "5", "kind": "income", "category": "travel"}, "category"},
		{"Non-positive amount", http.MethodPost, "/transactions", map[string]any{"amount": "0", "kind": "income"}, "amount"},
		{"Bad date", http.MethodPost, "/transactions", map[string]any{"amount": "5", "kind": "income", "occurred_at": "yesterday"}, "occurred_at"},
		{"Bad id", http.MethodGet, "/transactions/42", nil, "id"},
		{"Missing year", http.MethodGet, "/reports/monthly?month=2", nil, "year"},
		{"Month out of range", http.MethodGet, "/reports/monthly?year=2024&month=13", nil, "month"},
		{"Inverted range", http.MethodGet, "/reports/range?start=2024-02-01&end=2024-01-01", nil, "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantField, decode[errorResponse](t, rec).Field)
		})
	}
}

func TestHandler_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/balance", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	api := newTestAPI(t)

	api.do(http.MethodGet, "/transactions/not-a-uuid", nil)

	entry := api.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/transactions/:id", entry.Data["path"])
	assert.Equal(t, http.StatusBadRequest, entry.Data["status"])
	assert.True(t, strings.Contains(entry.Data["errors"].(string), "must be a UUID"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.NewValidationError("amount", "must be positive")))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.NotFound(uuid.New())))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.NewStorageError("save entry", errors.New("conn reset"))))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(domain.NewStorageError("save entry", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
