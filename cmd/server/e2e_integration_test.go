//go:build integration

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpcadapter "github.com/simaogato/ledgerflow-backend/internal/adapter/grpc"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

const e2eToken = "e2e-token"

var (
	db     *postgres.DB
	client *grpcadapter.Client
)

// TestMain migrates a fresh schema, starts the gRPC server on a loopback port
// and connects a client to it.
// Run with: DB_CONN_STR=... go test -p 1 -tags integration ./...
func TestMain(m *testing.M) {
	connStr := os.Getenv("DB_CONN_STR")
	if connStr == "" {
		fmt.Println("DB_CONN_STR not set, skipping end-to-end tests")
		os.Exit(0)
	}
	ctx := context.Background()

	// 1. Fresh schema and database connection
	if err := postgres.Migrate(connStr, true); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}
	var err error
	db, err = postgres.NewDB(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	// 2. gRPC server backed by postgres
	store := postgres.NewEntryStore(db)
	ledgerService := ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, nil)
	reportService := report.NewReportService(store, ledgerService, nil)

	server := grpclib.NewServer(grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(e2eToken)))
	grpcadapter.RegisterLedgerServiceServer(server, grpcadapter.NewServer(ledgerService, reportService))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(fmt.Sprintf("Failed to listen: %v", err))
	}
	go func() { _ = server.Serve(lis) }()

	// 3. Client
	conn, err := grpclib.NewClient(lis.Addr().String(), grpclib.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	client = grpcadapter.NewClient(conn)

	code := m.Run()

	conn.Close()
	server.GracefulStop()
	db.Close()
	os.Exit(code)
}

func authContext() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+e2eToken)
}

// storedBalances reads the running balances straight from the table in ledger order
func storedBalances(t *testing.T) []string {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), `SELECT balance FROM entries ORDER BY occurred_at, id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var raw string
		require.NoError(t, rows.Scan(&raw))
		d, err := decimal.NewFromString(raw)
		require.NoError(t, err)
		out = append(out, d.String())
	}
	require.NoError(t, rows.Err())
	return out
}

func TestEndToEndFlow(t *testing.T) {
	ctx := authContext()

	// Backdated entries rewrite every later balance.
	var ids []string
	for _, fields := range []map[string]any{
		{"amount": "1000", "kind": "income", "category": "salary", "occurred_at": "2024-01-05"},
		{"amount": "200", "kind": "expense", "category": "food", "occurred_at": "2024-01-10"},
		{"amount": "500", "kind": "expense", "occurred_at": "2024-01-01"},
	} {
		out, err := client.Call(ctx, "CreateEntry", fields)
		require.NoError(t, err)
		ids = append(ids, out.GetFields()["id"].GetStringValue())
	}
	assert.Equal(t, []string{"-500", "500", "300"}, storedBalances(t))

	// Deleting the salary recomputes the tail.
	_, err := client.Call(ctx, "DeleteEntry", map[string]any{"id": ids[0]})
	require.NoError(t, err)
	assert.Equal(t, []string{"-500", "-700"}, storedBalances(t))

	out, err := client.Call(ctx, "GetCurrentBalance", nil)
	require.NoError(t, err)
	assert.Equal(t, "-700", out.GetFields()["balance"].GetStringValue())

	out, err = client.Call(ctx, "GetMonthlySummary", map[string]any{"year": 2024, "month": 1})
	require.NoError(t, err)
	assert.Equal(t, "700", out.GetFields()["total_expense"].GetStringValue())
	assert.Equal(t, float64(2), out.GetFields()["entry_count"].GetNumberValue())

	out, err = client.Call(ctx, "RecomputeBalances", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), out.GetFields()["changed"].GetNumberValue())
}

func TestEndToEndErrors(t *testing.T) {
	_, err := client.Call(context.Background(), "GetCurrentBalance", nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.Call(authContext(), "CreateEntry", map[string]any{"amount": "0", "kind": "income"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
