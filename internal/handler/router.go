// Package handler exposes the HTTP surface of the finance core.
package handler

import (
	"net/http"

	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"
	"github.com/zegrana/finance-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups the use-case layer the router dispatches to.
type Services struct {
	Accounts   *service.AccountService
	Cards      *service.CardService
	Ledger     *service.LedgerService
	Loans      *service.LoanService
	Budgets    *service.BudgetService
	Categories *service.CategoryService
	Auth       *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, verifier port.TokenVerifier, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.TraceContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(svcs.Auth, logger))
			r.Post("/login", authLoginHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(verifier, logger))
				r.Get("/profile", authProfileHandler(svcs.Auth, logger))
			})
		})

		// Everything below is user-scoped.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(verifier, logger))

			// =============================================
			// Contas
			// =============================================
			r.Post("/accounts", createAccountHandler(svcs.Accounts, logger))
			r.Get("/accounts", listAccountsHandler(svcs.Accounts, logger))
			r.Get("/accounts/{accountID}", getAccountHandler(svcs.Accounts, logger))
			r.Post("/accounts/{accountID}/recompute", recomputeBalanceHandler(svcs.Accounts, logger))
			r.Delete("/accounts/{accountID}", deactivateAccountHandler(svcs.Accounts, logger))

			// =============================================
			// Cartões
			// =============================================
			r.Post("/cards", createCardHandler(svcs.Cards, logger))
			r.Get("/cards", listCardsHandler(svcs.Cards, logger))
			r.Get("/cards/{cardID}", getCardHandler(svcs.Cards, logger))
			r.Patch("/cards/{cardID}", updateCardHandler(svcs.Cards, logger))
			r.Delete("/cards/{cardID}", deactivateCardHandler(svcs.Cards, logger))

			// =============================================
			// Transações & Transferências
			// =============================================
			r.Post("/transactions", createTransactionHandler(svcs.Ledger, logger))
			r.Get("/transactions", listTransactionsHandler(svcs.Ledger, logger))
			r.Get("/transactions/{txID}", getTransactionHandler(svcs.Ledger, logger))
			r.Patch("/transactions/{txID}", updateTransactionHandler(svcs.Ledger, logger))
			r.Post("/transactions/{txID}/cancel", cancelTransactionHandler(svcs.Ledger, logger))
			r.Delete("/transactions/{txID}", removeTransactionHandler(svcs.Ledger, logger))
			r.Post("/transfers", createTransferHandler(svcs.Ledger, logger))

			// =============================================
			// Empréstimos & Parcelas
			// =============================================
			r.Post("/loans", createLoanHandler(svcs.Loans, logger))
			r.Post("/loans/simulate", simulateLoanHandler(svcs.Loans, logger))
			r.Get("/loans", listLoansHandler(svcs.Loans, logger))
			r.Get("/loans/{loanID}", getLoanHandler(svcs.Loans, logger))
			r.Patch("/loans/{loanID}", updateLoanHandler(svcs.Loans, logger))
			r.Post("/loans/{loanID}/close", closeLoanHandler(svcs.Loans, logger))
			r.Delete("/loans/{loanID}", removeLoanHandler(svcs.Loans, logger))
			r.Post("/installments/{installmentID}/pay", payInstallmentHandler(svcs.Loans, logger))
			r.Get("/installments/overdue", listOverdueInstallmentsHandler(svcs.Loans, logger))
			r.Get("/installments/upcoming", listUpcomingInstallmentsHandler(svcs.Loans, logger))

			// =============================================
			// Orçamentos
			// =============================================
			r.Post("/budgets", createBudgetHandler(svcs.Budgets, logger))
			r.Get("/budgets", listBudgetsHandler(svcs.Budgets, logger))
			r.Get("/budgets/alerts", listBudgetAlertsHandler(svcs.Budgets, logger))
			r.Get("/budgets/{budgetID}", getBudgetHandler(svcs.Budgets, logger))
			r.Patch("/budgets/{budgetID}", updateBudgetHandler(svcs.Budgets, logger))
			r.Delete("/budgets/{budgetID}", deleteBudgetHandler(svcs.Budgets, logger))

			// =============================================
			// Categorias
			// =============================================
			r.Get("/categories", listCategoriesHandler(svcs.Categories, logger))
			r.Get("/categories/{categoryID}", getCategoryHandler(svcs.Categories, logger))

			// =============================================
			// Operações
			// =============================================
			r.Get("/ops/ledger", ledgerSnapshotHandler(metrics))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerSnapshotHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.LedgerSnapshot())
	}
}
