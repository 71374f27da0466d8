// Package handler wires the HTTP API: routing, request decoding, and the
// mapping from domain errors to status codes.
package handler

import (
	"net/http"
	"time"

	"github.com/tyne-finance/ledger-go/internal/infra/observability"
	"github.com/tyne-finance/ledger-go/internal/port"
	"github.com/tyne-finance/ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router dispatches to.
type Services struct {
	Ledger    *service.LedgerService
	Accounts  *service.AccountService
	Items     *service.ItemService
	Summary   *service.SummaryService
	Auth      *service.AuthService
	Reference port.ReferenceStore
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs *Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Reference))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Auth (public + protected)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			})
		})

		// Reference data (read-only, public)
		r.Get("/currencies", listCurrenciesHandler(svcs.Reference, logger))
		r.Get("/account-types", listAccountTypesHandler(svcs.Reference, logger))

		// Ledger metrics snapshot
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			// Accounts
			r.Post("/accounts", createAccountHandler(svcs.Accounts, logger))
			r.Get("/accounts", listAccountsHandler(svcs.Accounts, logger))
			r.Get("/accounts/{accountId}", getAccountHandler(svcs.Accounts, logger))
			r.Patch("/accounts/{accountId}", patchAccountHandler(svcs.Accounts, logger))
			r.Get("/accounts/{accountId}/summary", accountSummaryHandler(svcs.Summary, logger))
			r.Get("/accounts/{accountId}/transactions", listTransactionsHandler(svcs.Ledger, logger))
			r.Get("/accounts/{accountId}/expenses", listExpensesHandler(svcs.Items, logger))

			// Ledger transactions. PUT and PATCH are routed so the refusal
			// is an explicit 403, not a 405.
			r.Post("/transactions", createTransactionHandler(svcs.Ledger, logger))
			r.Get("/transactions/{transactionId}", getTransactionHandler(svcs.Ledger, logger))
			r.Delete("/transactions/{transactionId}", deleteTransactionHandler(svcs.Ledger, logger))
			r.Put("/transactions/{transactionId}", updateTransactionHandler(svcs.Ledger, logger))
			r.Patch("/transactions/{transactionId}", updateTransactionHandler(svcs.Ledger, logger))

			// Expenses
			r.Post("/expenses", createExpenseHandler(svcs.Items, logger))
			r.Get("/expenses/{expenseId}", getExpenseHandler(svcs.Items, logger))
			r.Delete("/expenses/{expenseId}", deleteExpenseHandler(svcs.Items, logger))

			// Recurring payments
			r.Post("/payments", createPaymentHandler(svcs.Items, logger))
			r.Get("/payments", listPaymentsHandler(svcs.Items, logger))
			r.Get("/payments/{paymentId}", getPaymentHandler(svcs.Items, logger))
			r.Delete("/payments/{paymentId}", deletePaymentHandler(svcs.Items, logger))
		})
	})

	return r
}

// ============================================================
// Operational & reference endpoints
// ============================================================

func healthzHandler(ref port.ReferenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		_, err := ref.ListCurrencies(r.Context())
		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}

func listCurrenciesHandler(ref port.ReferenceStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currencies, err := ref.ListCurrencies(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"currencies": currencies})
	}
}

func listAccountTypesHandler(ref port.ReferenceStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := ref.ListAccountTypes(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"account_types": types})
	}
}
