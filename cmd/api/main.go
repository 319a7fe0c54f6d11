package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/auth"
	"github.com/vendahub/ledger/internal/config"
	"github.com/vendahub/ledger/internal/database"
	"github.com/vendahub/ledger/internal/handlers"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/payout"
	"github.com/vendahub/ledger/internal/port"
	"github.com/vendahub/ledger/internal/rail"
	"github.com/vendahub/ledger/internal/routes"
	"github.com/vendahub/ledger/internal/settlement"
	"github.com/vendahub/ledger/internal/storage/memory"
	"github.com/vendahub/ledger/internal/storage/mysql"
	"github.com/vendahub/ledger/internal/transfer"
	"github.com/vendahub/ledger/internal/withdrawal"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	var (
		accounts    port.AccountRepository
		txs         port.TransactionRepository
		withdrawals port.WithdrawalRepository
		transfers   port.TransferRepository
		orders      port.OrderSource
		costs       port.CostHistory
	)
	if cfg.DB.DSN != "" {
		db, err := database.Open(cfg.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		store := mysql.New(db)
		accounts = store.Accounts()
		txs = store.Transactions()
		withdrawals = store.Withdrawals()
		transfers = store.Transfers()
		orders = store.Orders()
		costs = store.Costs()
		logger.Info().Msg("using mysql storage")
	} else {
		store := memory.New()
		accounts = store.Accounts()
		txs = store.Transactions()
		withdrawals = store.Withdrawals()
		transfers = store.Transfers()
		orders = store.Orders()
		costs = store.Costs()
		logger.Warn().Msg("no database DSN configured, using in-memory storage")
	}

	led := ledger.New(accounts, txs, logger)
	registry := account.NewRegistry(accounts, led, logger)
	transferSvc := transfer.NewService(registry, led, accounts, transfers, logger)
	withdrawalWf := withdrawal.NewWorkflow(registry, led, accounts, withdrawals, logger)

	railClient := rail.NewClient(cfg.Rail.URL, cfg.Rail.APIKey, cfg.Rail.Timeout)
	payoutExec := payout.NewExecutor(withdrawalWf, railClient, cfg.Payout.Workers, cfg.Payout.MaxAttempts, cfg.Rail.Timeout, logger)
	settlementCalc := settlement.NewCalculator(orders, costs, registry, led, txs, accounts, cfg.Settlement.EstimateCostPercent, logger)

	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Background sweep: every account's balance projection is checked
	// against its ledger fold. Diverged accounts get suspended inside
	// ReconcileAll; the sweep itself only reports.
	go func() {
		ticker := time.NewTicker(cfg.Reconcile.Interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := registry.ReconcileAll(context.Background()); err != nil {
				logger.Error().Err(err).Msg("reconciliation sweep found problems")
			}
		}
	}()

	h := &handlers.Handlers{
		Accounts:    registry,
		Ledger:      led,
		Transfers:   transferSvc,
		Withdrawals: withdrawalWf,
		Payouts:     payoutExec,
		Settlements: settlementCalc,
		Log:         logger,
	}

	router := routes.SetupRouter(h, authManager, cfg.Server.CORSAllowOrigin)

	logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("failed to run server")
	}
}
