// Command ledgerctl runs maintenance tasks against a ledger deployment.
//
//	ledgerctl migrate [-refresh]          apply schema migrations; -refresh drops the ledger first
//	ledgerctl recompute                   recompute every running balance in the configured store
//	ledgerctl balance [-addr] [-token]    print the current balance from a running server
//	ledgerctl export [-period] [-out]     write recent summaries to an XLSX file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/simaogato/ledgerflow-backend/internal/adapter/export"
	grpcadapter "github.com/simaogato/ledgerflow-backend/internal/adapter/grpc"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/ledgerflow-backend/internal/config"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/logging"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

const usage = "usage: ledgerctl <migrate|recompute|balance|export> [flags]"

var errNoPersistentStore = errors.New("DATA_BACKEND must be postgres or sqlite")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")
	ctx := context.Background()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "migrate":
		err = runMigrate(cfg, args, logger)
	case "recompute":
		err = runRecompute(ctx, cfg, logger)
	case "balance":
		err = runBalance(ctx, cfg, args)
	case "export":
		err = runExport(ctx, cfg, args, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Error(os.Args[1] + " failed")
		os.Exit(1)
	}
}

func runMigrate(cfg *config.Config, args []string, logger logrus.FieldLogger) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "drop every table before migrating (deletes the ledger)")
	_ = fs.Parse(args)

	switch cfg.DataBackend {
	case "postgres":
		if err := postgres.Migrate(cfg.DBConnStr, *refresh); err != nil {
			return err
		}
	case "sqlite":
		if err := sqlite.Migrate(cfg.SQLiteDBPath, *refresh); err != nil {
			return err
		}
	default:
		return errNoPersistentStore
	}

	logger.WithFields(logrus.Fields{"backend": cfg.DataBackend, "refresh": *refresh}).Info("schema up to date")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (domain.EntryStore, func() error, error) {
	switch cfg.DataBackend {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.DBConnStr)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewEntryStore(db), db.Close, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewEntryStore(db), db.Close, nil
	default:
		return nil, nil, errNoPersistentStore
	}
}

func runRecompute(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var locker domain.WriteLocker = lock.NewLocalLocker()
	if cfg.LockBackend == "redis" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddress, cfg.RedisPass)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, lock.DefaultKey, cfg.LockTTL, logger)
	}

	svc := ledger.NewLedgerService(store, locker, nil, logger)
	changed, err := svc.RecomputeBalances(ctx)
	if err != nil {
		return err
	}
	balance, err := svc.CurrentBalance(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("changed=%d balance=%s\n", changed, balance)
	return nil
}

func runBalance(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	addr := fs.String("addr", "localhost"+cfg.GRPCAddr, "gRPC server address")
	token := fs.String("token", cfg.APIToken, "API token")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	_ = fs.Parse(args)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+*token)

	out, err := grpcadapter.NewClient(conn).Call(ctx, "GetCurrentBalance", nil)
	if err != nil {
		return err
	}
	fmt.Println(out.GetFields()["balance"].GetStringValue())
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string, logger logrus.FieldLogger) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	period := fs.String("period", "monthly", "monthly or yearly")
	out := fs.String("out", "", "output file (default <period>-summaries.xlsx)")
	_ = fs.Parse(args)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reports := report.NewReportService(store, ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, logger), logger)
	reports.Location = cfg.Location()

	var (
		periods []domain.PeriodSummary
		sheet   string
	)
	switch *period {
	case "monthly":
		periods, err = reports.RecentMonths(ctx)
		sheet = "Monthly"
	case "yearly":
		periods, err = reports.RecentYears(ctx)
		sheet = "Yearly"
	default:
		return fmt.Errorf("unknown period %q", *period)
	}
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = *period + "-summaries.xlsx"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteSummaries(f, sheet, periods); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"file": path, "periods": len(periods)}).Info("summaries exported")
	return nil
}
