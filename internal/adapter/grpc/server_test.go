package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testToken = "test-token-123"

var (
	testNow  = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	testUUID = uuid.MustParse("018d2f3e-0000-7000-8000-000000000000")
)

func newTestClient(t *testing.T) (*Client, context.Context) {
	t.Helper()

	store := memory.NewEntryRepository()
	ledgerService := ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, nil)
	ledgerService.Now = func() time.Time { return testNow }
	reportService := report.NewReportService(store, ledgerService, nil)
	reportService.Now = func() time.Time { return testNow }

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(testToken)))
	RegisterLedgerServiceServer(srv, NewServer(ledgerService, reportService))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+testToken)
	return NewClient(conn), ctx
}

func seed(t *testing.T, client *Client, ctx context.Context) {
	t.Helper()
	for _, fields := range []map[string]any{
		{"amount": "1000", "kind": "income", "category": "salary", "occurred_at": "2024-01-05"},
		{"amount": "200", "kind": "expense", "category": "food", "occurred_at": "2024-01-10"},
		{"amount": 300, "kind": "income", "occurred_at": "2024-03-02T09:30:00Z"},
	} {
		_, err := client.Call(ctx, "CreateEntry", fields)
		require.NoError(t, err)
	}
}

func TestServer_EntryLifecycle(t *testing.T) {
	client, ctx := newTestClient(t)

	created, err := client.Call(ctx, "CreateEntry", map[string]any{
		"amount":      "150.25",
		"kind":        "expense",
		"note":        "rent share",
		"occurred_at": "2024-02-01",
	})
	require.NoError(t, err)
	fields := created.AsMap()
	assert.Equal(t, "150.25", fields["amount"])
	assert.Equal(t, "other", fields["category"])
	assert.Equal(t, "-150.25", fields["balance"])
	id := fields["id"].(string)

	got, err := client.Call(ctx, "GetEntry", map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "rent share", got.AsMap()["note"])

	updated, err := client.Call(ctx, "UpdateEntry", map[string]any{"id": id, "kind": "income"})
	require.NoError(t, err)
	assert.Equal(t, "150.25", updated.AsMap()["balance"])

	balance, err := client.Call(ctx, "GetCurrentBalance", nil)
	require.NoError(t, err)
	assert.Equal(t, "150.25", balance.AsMap()["balance"])

	_, err = client.Call(ctx, "DeleteEntry", map[string]any{"id": id})
	require.NoError(t, err)

	_, err = client.Call(ctx, "GetEntry", map[string]any{"id": id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_ListEntries(t *testing.T) {
	client, ctx := newTestClient(t)
	seed(t, client, ctx)

	out, err := client.Call(ctx, "ListEntries", map[string]any{"page": 1, "limit": 2})
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, float64(2), fields["total_pages"])
	assert.Equal(t, float64(3), fields["total_records"])

	items := fields["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "1100", items[0].(map[string]any)["balance"])

	recent, err := client.Call(ctx, "ListRecentEntries", nil)
	require.NoError(t, err)
	assert.Len(t, recent.AsMap()["items"], 3)

	recomputed, err := client.Call(ctx, "RecomputeBalances", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), recomputed.AsMap()["changed"])
}

func TestServer_Summaries(t *testing.T) {
	client, ctx := newTestClient(t)
	seed(t, client, ctx)

	monthly, err := client.Call(ctx, "GetMonthlySummary", map[string]any{"year": 2024, "month": 1})
	require.NoError(t, err)
	fields := monthly.AsMap()
	assert.Equal(t, "1000", fields["total_income"])
	assert.Equal(t, "200", fields["total_expense"])
	assert.Equal(t, "800", fields["net_balance"])
	assert.Equal(t, "January", fields["month_name"])

	yearly, err := client.Call(ctx, "GetYearlySummary", map[string]any{"year": 2024})
	require.NoError(t, err)
	assert.Equal(t, "1100", yearly.AsMap()["net_balance"])
	assert.NotContains(t, yearly.AsMap(), "month")

	daily, err := client.Call(ctx, "GetDailySummary", map[string]any{"date": "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), daily.AsMap()["entry_count"])

	ranged, err := client.Call(ctx, "SummarizeRange", map[string]any{"start": "2024-01-01", "end": "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, "1000", ranged.AsMap()["net_balance"])

	total, err := client.Call(ctx, "GetTotalSummary", nil)
	require.NoError(t, err)
	assert.Equal(t, "1100", total.AsMap()["current_balance"])

	overview, err := client.Call(ctx, "GetCurrentMonthOverview", nil)
	require.NoError(t, err)
	period := overview.AsMap()["period"].(map[string]any)
	assert.Equal(t, "2024-03", period["label"])
	assert.Equal(t, "1100", overview.AsMap()["current_balance"])

	page, err := client.Call(ctx, "ListMonthlySummaries", map[string]any{"page": 1, "page_size": 1})
	require.NoError(t, err)
	pageFields := page.AsMap()
	assert.Equal(t, float64(2), pageFields["total_records"])
	assert.Equal(t, true, pageFields["has_next"])
	items := pageFields["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "2024-03", items[0].(map[string]any)["label"])
	assert.Empty(t, pageFields["skipped_periods"])
}

func TestServer_ErrorCodes(t *testing.T) {
	client, ctx := newTestClient(t)

	tests := []struct {
		name   string
		method string
		fields map[string]any
		code   codes.Code
	}{
		{"Missing amount", "CreateEntry", map[string]any{"kind": "income"}, codes.InvalidArgument},
		{"Non-positive amount", "CreateEntry", map[string]any{"amount": "-5", "kind": "income"}, codes.InvalidArgument},
		{"Unknown kind", "CreateEntry", map[string]any{"amount": "5", "kind": "gift"}, codes.InvalidArgument},
		{"Bad id", "GetEntry", map[string]any{"id": "nope"}, codes.InvalidArgument},
		{"Unknown id", "GetEntry", map[string]any{"id": testUUID.String()}, codes.NotFound},
		{"Bad month", "GetMonthlySummary", map[string]any{"year": 2024, "month": 13}, codes.InvalidArgument},
		{"Fractional year", "GetYearlySummary", map[string]any{"year": 2024.5}, codes.InvalidArgument},
		{"Bad page", "ListYearlySummaries", map[string]any{"page": 0}, codes.InvalidArgument},
		{"Inverted range", "SummarizeRange", map[string]any{"start": "2024-02-01", "end": "2024-01-01"}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method, tt.fields)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestServer_RequiresToken(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Call(context.Background(), "GetCurrentBalance", nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.NewValidationError("amount", "must be positive"), codes.InvalidArgument},
		{domain.NotFound(testUUID), codes.NotFound},
		{domain.NewStorageError("save entry", context.DeadlineExceeded), codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{domain.NewStorageError("save entry", assert.AnError), codes.Unavailable},
		{assert.AnError, codes.Internal},
	}

	assert.NoError(t, mapError(nil))
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(mapError(tt.err)), tt.err.Error())
	}
}
