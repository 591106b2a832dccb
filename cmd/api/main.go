package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ssr-04/banking-ledger/internal/config"
	"github.com/ssr-04/banking-ledger/internal/handler"
	"github.com/ssr-04/banking-ledger/internal/logging"
	"github.com/ssr-04/banking-ledger/internal/middleware"
	"github.com/ssr-04/banking-ledger/internal/reference"
	"github.com/ssr-04/banking-ledger/internal/repository"
	"github.com/ssr-04/banking-ledger/internal/service"
	"github.com/ssr-04/banking-ledger/internal/service/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("ledger-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)

	ledgerSvc := ledger.NewService(accounts, transactions, reference.NewGenerator(), db,
		time.Duration(cfg.LockTimeoutMS)*time.Millisecond)
	accountSvc := service.NewAccountService(accounts, db)

	healthHandler := handler.NewHealthHandler(db)
	accountHandler := handler.NewAccountHandler(accountSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/accounts", accountHandler.Open)
	mux.HandleFunc("GET /api/v1/accounts/{id}", accountHandler.Get)
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", accountHandler.Close)
	mux.HandleFunc("GET /api/v1/accounts/{id}/transactions", ledgerHandler.AccountTransactions)

	mux.HandleFunc("POST /api/v1/transactions/deposit", ledgerHandler.Deposit)
	mux.HandleFunc("POST /api/v1/transactions/withdraw", ledgerHandler.Withdraw)
	mux.HandleFunc("POST /api/v1/transactions/transfer", ledgerHandler.Transfer)
	mux.HandleFunc("POST /api/v1/transactions/{reference}/reverse", ledgerHandler.Reverse)
	mux.HandleFunc("GET /api/v1/transactions/{id}", ledgerHandler.GetTransaction)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
