package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/robertrullyp/drsis-finance/api/routes"
	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/internal/budget"
	"github.com/robertrullyp/drsis-finance/internal/invoice"
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/internal/posting"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/db"
	"github.com/robertrullyp/drsis-finance/pkg/instance"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
	"github.com/robertrullyp/drsis-finance/pkg/migrate"
	"github.com/robertrullyp/drsis-finance/pkg/outbox"
	"github.com/robertrullyp/drsis-finance/pkg/pubsub"
	"github.com/robertrullyp/drsis-finance/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	conn := dbClient.DB()
	accountsRepo := accounts.NewRepository(conn)
	lockRepo := periodlock.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	invoiceRepo := invoice.NewRepository(conn)
	budgetRepo := budget.NewRepository(conn)

	auditor, err := audit.NewRecorder(conn, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	accountsService, err := accounts.NewService(accountsRepo, dbClient, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	lockService, err := periodlock.NewService(lockRepo, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create period lock service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, accountsRepo, lockRepo, dbClient, outboxService, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	bridge, err := posting.NewBridge(ledgerRepo, accountsRepo, lockRepo, cfg.Posting)
	if err != nil {
		logg.Error(context.Background(), "failed to create posting bridge", err)
		os.Exit(1)
	}

	invoiceService, err := invoice.NewService(invoiceRepo, bridge, dbClient, outboxService, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	budgetService, err := budget.NewService(budgetRepo, accountsRepo, dbClient, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create budget service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, pubsubClient, routes.Services{
			Accounts:    accountsService,
			PeriodLocks: lockService,
			Ledger:      ledgerService,
			Invoices:    invoiceService,
			Budgets:     budgetService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
