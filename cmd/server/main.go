package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/adapter/handler"
	"github.com/vitashop/checkout/internal/adapter/notifier"
	"github.com/vitashop/checkout/internal/adapter/storage"
	"github.com/vitashop/checkout/internal/config"
	"github.com/vitashop/checkout/internal/core/service"
	"github.com/vitashop/checkout/internal/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.MustNewLogger("checkout", cfg.Env)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	if err := runMigrations(cfg); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("migrations applied")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Kafka notifier
	paidNotifier, err := notifier.NewKafkaNotifier(cfg.KafkaBootstrapServers, cfg.OrderPaidTopic, logger)
	if err != nil {
		logger.Fatal("failed to create kafka notifier", zap.Error(err))
	}

	// Adapters
	inventoryRepo := storage.NewMySQLInventory(db)
	orderRepo := storage.NewMySQLOrders(db)
	cartRepo := storage.NewMySQLCart(db)
	catalog := storage.NewMySQLCatalog(db)
	keyStore := storage.NewRedisKeyStore(rdb)

	// Services
	dispatcher := service.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, 10*time.Second, logger)
	ledger := service.NewInventoryLedger(inventoryRepo, logger)
	orders := service.NewOrderStore(orderRepo, logger)
	guard := service.NewIdempotencyGuard(keyStore, logger)
	placement := service.NewPlacementCoordinator(cartRepo, catalog, ledger, orders, logger)
	settlement := service.NewSettlementHandler(guard, orders, paidNotifier, dispatcher, logger)

	// HTTP server
	mux := http.NewServeMux()
	httpHandler := handler.NewHTTPHandler(placement, settlement, cartRepo, handler.HeaderAuth, logger)
	httpHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	dispatcher.Close()
	paidNotifier.Close()
	rdb.Close()
	db.Close()
	logger.Info("shutdown complete")
}

func runMigrations(cfg config.Config) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.MigrationsPath),
		fmt.Sprintf("mysql://%s", cfg.MySQLDSN),
	)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
