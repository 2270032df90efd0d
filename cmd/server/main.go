package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/ledgerflow-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/ledgerflow-backend/internal/adapter/http"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/events"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/ledgerflow-backend/internal/config"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/logging"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/seeder"
)

const (
	dbConnectAttempts = 5
	dbConnectDelay    = 2 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	ctx := context.Background()
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.WithError(err).Warn("close failed")
			}
		}
	}()

	// 1. Storage
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open ledger storage")
		return
	}
	closers = append(closers, closeStore)

	// 2. Write lock
	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to set up write lock")
		return
	}
	closers = append(closers, closeLocker)

	// 3. Events
	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to event broker")
		return
	}
	closers = append(closers, closePublisher)

	// 4. Services
	ledgerService := ledger.NewLedgerService(store, locker, publisher, logger)

	reportService := report.NewReportService(store, ledgerService, logger)
	reportService.Location = cfg.Location()
	reportService.Strict = cfg.ReportStrict
	reportService.Concurrency = cfg.ReportConcurrency

	if cfg.SeedFile != "" {
		n, err := seeder.NewEntrySeeder(ledgerService, store).SeedFile(ctx, cfg.SeedFile)
		if err != nil {
			logging.LogError(logger, "seeder", "SeedFile", "failed to seed ledger", map[string]string{"file": cfg.SeedFile}, err)
			return
		}
		logger.WithFields(logrus.Fields{"file": cfg.SeedFile, "entries": n}).Info("ledger seeded")
	}

	// 5. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterLedgerServiceServer(grpcServer, grpcadapter.NewServer(ledgerService, reportService))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.WithError(err).WithField("addr", cfg.GRPCAddr).Error("failed to listen")
		return
	}

	// 6. HTTP server
	router, err := httpadapter.NewRouter(httpadapter.RouterConfig{
		Mode:           cfg.HTTPMode,
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, ledgerService, reportService, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build HTTP router")
		return
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	waitForShutdown(logger, serveErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown")
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
}

// waitForShutdown blocks until SIGTERM or SIGINT arrives or a server fails
func waitForShutdown(logger logrus.FieldLogger, serveErr <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("shutting down gracefully")
	case err := <-serveErr:
		logger.WithError(err).Error("server stopped unexpectedly")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (domain.EntryStore, func() error, error) {
	switch cfg.DataBackend {
	case "postgres":
		if err := postgres.Migrate(cfg.DBConnStr, false); err != nil {
			return nil, nil, err
		}
		db, err := connectPostgres(ctx, cfg.DBConnStr, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage")
		return postgres.NewEntryStore(db), db.Close, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", cfg.SQLiteDBPath).Info("using sqlite storage")
		return sqlite.NewEntryStore(db), db.Close, nil
	default:
		logger.Warn("using in-memory storage; the ledger is lost on exit")
		return memory.NewEntryRepository(), func() error { return nil }, nil
	}
}

// connectPostgres retries while the database is starting up
func connectPostgres(ctx context.Context, connStr string, logger logrus.FieldLogger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		db, err := postgres.NewDB(ctx, connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Warn("database not ready")
		time.Sleep(dbConnectDelay)
	}
	return nil, lastErr
}

func newLocker(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (domain.WriteLocker, func() error, error) {
	if cfg.LockBackend != "redis" {
		return lock.NewLocalLocker(), func() error { return nil }, nil
	}
	rdb, err := lock.Connect(ctx, cfg.RedisAddress, cfg.RedisPass)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("addr", cfg.RedisAddress).Info("using redis write lock")
	return lock.NewRedisLocker(rdb, lock.DefaultKey, cfg.LockTTL, logger), rdb.Close, nil
}

func newPublisher(cfg *config.Config, logger logrus.FieldLogger) (domain.EventPublisher, func() error, error) {
	if cfg.AMQPURL == "" {
		return events.NewLogPublisher(logger), func() error { return nil }, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("exchange", cfg.AMQPExchange).Info("publishing ledger events to AMQP")
	return publisher, publisher.Close, nil
}
