package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robertrullyp/drsis-finance/api/controllers"
	"github.com/robertrullyp/drsis-finance/api/middleware"
	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/budget"
	"github.com/robertrullyp/drsis-finance/internal/invoice"
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
	"github.com/robertrullyp/drsis-finance/pkg/redis"
)

// Pinger is the readiness surface each infrastructure client exposes.
type Pinger interface {
	Ping(context.Context) error
}

// Services bundles the domain services the router exposes.
type Services struct {
	Accounts    accounts.Service
	PeriodLocks periodlock.Service
	Ledger      ledger.Service
	Invoices    invoice.Service
	Budgets     budget.Service
}

// NewRouter assembles the finance API: health probes stay public, everything
// else sits behind the auth middleware. Approval-grade operations additionally
// require an elevated role.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP Pinger,
	redisClient *redis.Client,
	pubsubP Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadyDeps(dbP, redisClient, pubsubP)))
	})

	writePolicy := middleware.NewWriteRateLimitPolicy(
		"writes",
		cfg.RateLimit.WriteWindow,
		cfg.RateLimit.WriteLimit,
	)

	// A nil *redis.Client must become a nil interface or the middleware's
	// nil checks never fire.
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", controllers.InvoiceCreate(svcs.Invoices, logg))
			r.Get("/", controllers.InvoiceList(svcs.Invoices, logg))
			r.Get("/{invoiceID}", controllers.InvoiceGet(svcs.Invoices, logg))
			r.Post("/{invoiceID}/discounts", controllers.InvoiceAddDiscount(svcs.Invoices, logg))
			r.Post("/{invoiceID}/payments", controllers.InvoiceAddPayment(svcs.Invoices, logg))
			r.Post("/{invoiceID}/payments/{paymentID}/refunds", controllers.InvoiceAddRefund(svcs.Invoices, logg))
			r.With(middleware.RequireElevated(logg)).Post("/{invoiceID}/void", controllers.InvoiceVoid(svcs.Invoices, logg))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", controllers.AccountCreate(svcs.Accounts, logg))
			r.Get("/", controllers.AccountList(svcs.Accounts, logg))
			r.Get("/{accountID}", controllers.AccountGet(svcs.Accounts, logg))
			r.Put("/{accountID}", controllers.AccountUpdate(svcs.Accounts, logg))
			r.With(middleware.RequireElevated(logg)).Delete("/{accountID}", controllers.AccountDelete(svcs.Accounts, logg))
		})

		r.Route("/cash-banks", func(r chi.Router) {
			r.Post("/", controllers.CashBankCreate(svcs.Accounts, logg))
			r.Get("/", controllers.CashBankList(svcs.Accounts, logg))
			r.Get("/{cashBankID}", controllers.CashBankGet(svcs.Accounts, logg))
			r.Put("/{cashBankID}", controllers.CashBankUpdate(svcs.Accounts, logg))
		})

		r.Route("/period-locks", func(r chi.Router) {
			r.Get("/", controllers.PeriodLockList(svcs.PeriodLocks, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireElevated(logg))
				r.Post("/", controllers.PeriodLockCreate(svcs.PeriodLocks, logg))
				r.Delete("/{lockID}", controllers.PeriodLockDelete(svcs.PeriodLocks, logg))
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", controllers.TxnCreate(svcs.Ledger, logg))
			r.Post("/transfer", controllers.TxnTransfer(svcs.Ledger, logg))
			r.Get("/", controllers.TxnList(svcs.Ledger, logg))
			r.Get("/{txnID}", controllers.TxnGet(svcs.Ledger, logg))
			r.Put("/{txnID}", controllers.TxnUpdate(svcs.Ledger, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireElevated(logg))
				r.Post("/{txnID}/approve", controllers.TxnApprove(svcs.Ledger, logg))
				r.Post("/{txnID}/reject", controllers.TxnReject(svcs.Ledger, logg))
			})
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Post("/", controllers.BudgetCreate(svcs.Budgets, logg))
			r.Get("/", controllers.BudgetList(svcs.Budgets, logg))
			r.Get("/report", controllers.BudgetReport(svcs.Budgets, logg))
			r.Get("/{budgetID}", controllers.BudgetGet(svcs.Budgets, logg))
			r.Put("/{budgetID}", controllers.BudgetUpdate(svcs.Budgets, logg))
			r.Delete("/{budgetID}", controllers.BudgetDelete(svcs.Budgets, logg))
		})
	})

	return r
}
