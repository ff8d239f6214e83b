package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/handler"
	"github.com/zegrana/finance-core-go/internal/infra/auth"
	"github.com/zegrana/finance-core-go/internal/infra/cache"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/infra/postgrest"
	"github.com/zegrana/finance-core-go/internal/infra/resilience"
	"github.com/zegrana/finance-core-go/internal/service"

	"go.uber.org/zap"
)

// fakeProvider is an in-memory PostgREST lookalike: collections of JSON
// records, the filter grammar the stores actually use, and the exec_batch
// RPC applied as one unit.
type fakeProvider struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{collections: map[string][]map[string]any{}}
}

func (p *fakeProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

		if path == "rpc/exec_batch" {
			p.execBatch(w, r)
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			out := []map[string]any{}
			for _, rec := range p.collections[path] {
				if matches(rec, r.URL.Query()) {
					out = append(out, rec)
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(out)

		case http.MethodPost:
			var rec map[string]any
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			p.collections[path] = append(p.collections[path], rec)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]map[string]any{rec})

		case http.MethodPatch:
			var fields map[string]any
			if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for _, rec := range p.collections[path] {
				if matches(rec, r.URL.Query()) {
					for k, v := range fields {
						rec[k] = v
					}
				}
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			kept := p.collections[path][:0]
			for _, rec := range p.collections[path] {
				if !matches(rec, r.URL.Query()) {
					kept = append(kept, rec)
				}
			}
			p.collections[path] = kept
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func (p *fakeProvider) execBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ops []struct {
			Kind       string         `json:"kind"`
			Collection string         `json:"collection"`
			ID         string         `json:"id"`
			Entity     map[string]any `json:"entity"`
		} `json:"ops"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, op := range body.Ops {
		switch op.Kind {
		case "insert":
			p.collections[op.Collection] = append(p.collections[op.Collection], op.Entity)
		case "update":
			for _, rec := range p.collections[op.Collection] {
				if fmt.Sprint(rec["id"]) == op.ID {
					for k, v := range op.Entity {
						rec[k] = v
					}
				}
			}
		case "delete":
			kept := p.collections[op.Collection][:0]
			for _, rec := range p.collections[op.Collection] {
				if fmt.Sprint(rec["id"]) != op.ID {
					kept = append(kept, rec)
				}
			}
			p.collections[op.Collection] = kept
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// matches applies PostgREST-style query predicates to one record.
func matches(rec map[string]any, query map[string][]string) bool {
	for field, predicates := range query {
		switch field {
		case "order", "limit", "offset", "select":
			continue
		}
		for _, predicate := range predicates {
			op, arg, ok := strings.Cut(predicate, ".")
			if !ok {
				continue
			}
			val := ""
			if v, present := rec[field]; present && v != nil {
				val = fmt.Sprint(v)
			}
			switch op {
			case "eq":
				if val != arg {
					return false
				}
			case "neq":
				if val == arg {
					return false
				}
			case "in":
				members := strings.Split(strings.Trim(arg, "()"), ",")
				found := false
				for _, m := range members {
					if val == m {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			case "gte":
				if val < arg {
					return false
				}
			case "lte":
				if val > arg {
					return false
				}
			case "is":
				if arg == "null" && rec[field] != nil {
					return false
				}
			}
		}
	}
	return true
}

// newStack wires the real client, stores, services and router against the
// fake provider, mirroring the production wiring.
func newStack(t *testing.T) (http.Handler, *fakeProvider) {
	t.Helper()
	provider := newFakeProvider()
	backend := httptest.NewServer(provider.handler())
	t.Cleanup(backend.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	cb := resilience.NewCircuitBreaker("integration", cfg)
	httpClient := &http.Client{Timeout: 5 * time.Second}

	client := postgrest.NewClient(httpClient, backend.URL, "test-key", cb, cfg, logger)

	accountStore := postgrest.NewAccountStore(client)
	cardStore := postgrest.NewCardStore(client)
	transactionStore := postgrest.NewTransactionStore(client)
	loanStore := postgrest.NewLoanStore(client)
	budgetStore := postgrest.NewBudgetStore(client)
	categoryStore := postgrest.NewCategoryStore(client)
	userStore := postgrest.NewUserStore(client)

	hasher := auth.NewBcryptHasher(4)
	issuer := auth.NewJWTIssuer("integration-secret", time.Hour)
	warnings := observability.NewZapWarningSink(logger)

	// A tiny TTL keeps account reads honest across the mutations below.
	categorySvc := service.NewCategoryService(categoryStore, cache.New[*domain.Category](time.Millisecond), metrics)
	ledgerSvc := service.NewLedgerService(transactionStore, accountStore, categorySvc, warnings, metrics, logger)
	accountSvc := service.NewAccountService(accountStore, ledgerSvc, cache.New[*domain.Account](time.Millisecond), metrics, logger)
	cardSvc := service.NewCardService(cardStore, accountStore, metrics, logger)
	loanSvc := service.NewLoanService(loanStore, ledgerSvc, metrics, logger)
	budgetSvc := service.NewBudgetService(budgetStore, categorySvc, transactionStore, metrics, logger)
	authSvc := service.NewAuthService(userStore, hasher, issuer, logger)

	router := handler.NewRouter(handler.Services{
		Accounts:   accountSvc,
		Cards:      cardSvc,
		Ledger:     ledgerSvc,
		Loans:      loanSvc,
		Budgets:    budgetSvc,
		Categories: categorySvc,
		Auth:       authSvc,
	}, issuer, metrics, logger)

	return router, provider
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal %s %s response (%d): %v: %s", method, path, rec.Code, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestIntegration_FullFlow(t *testing.T) {
	router, _ := newStack(t)

	// --- Register & login ---
	var user domain.User
	code := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Maria",
		"email":    "maria@example.com",
		"password": "correct-horse",
	}, &user)
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}

	var login domain.AuthResult
	code = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "maria@example.com",
		"password": "correct-horse",
	}, &login)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	token := login.AccessToken
	if token == "" {
		t.Fatal("login returned no access token")
	}

	// --- Open two accounts ---
	var checking, savings domain.Account
	code = doJSON(t, router, http.MethodPost, "/v1/accounts", token, map[string]any{
		"name":            "Conta Corrente",
		"type":            "checking",
		"opening_balance": map[string]string{"amount": "1000.00", "currency": "BRL"},
	}, &checking)
	if code != http.StatusCreated {
		t.Fatalf("create checking: expected 201, got %d", code)
	}
	code = doJSON(t, router, http.MethodPost, "/v1/accounts", token, map[string]any{
		"name":            "Poupança",
		"type":            "savings",
		"opening_balance": map[string]string{"amount": "100.00", "currency": "BRL"},
	}, &savings)
	if code != http.StatusCreated {
		t.Fatalf("create savings: expected 201, got %d", code)
	}

	// --- Register a card ---
	var card domain.Card
	code = doJSON(t, router, http.MethodPost, "/v1/cards", token, map[string]any{
		"name":             "Cartão Principal",
		"type":             "credit",
		"brand":            "visa",
		"last_four_digits": "4242",
		"credit_limit":     map[string]string{"amount": "3000.00", "currency": "BRL"},
		"closing_day":      8,
		"due_day":          15,
	}, &card)
	if code != http.StatusCreated {
		t.Fatalf("create card: expected 201, got %d", code)
	}
	if card.BestPurchaseDay != 9 {
		t.Errorf("expected best purchase day 9, got %d", card.BestPurchaseDay)
	}

	var cards []domain.Card
	code = doJSON(t, router, http.MethodGet, "/v1/cards", token, nil, &cards)
	if code != http.StatusOK {
		t.Fatalf("list cards: expected 200, got %d", code)
	}
	if len(cards) != 1 {
		t.Errorf("expected 1 card, got %d", len(cards))
	}

	// --- Record an expense ---
	var expense domain.Transaction
	code = doJSON(t, router, http.MethodPost, "/v1/transactions", token, map[string]any{
		"account_id":  checking.ID,
		"card_id":     card.ID,
		"type":        "expense",
		"value":       map[string]string{"amount": "150.00", "currency": "BRL"},
		"date":        time.Now().UTC().Format(time.RFC3339),
		"description": "Mercado",
	}, &expense)
	if code != http.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d", code)
	}
	if expense.Status != domain.StatusConfirmed {
		t.Errorf("expected default status confirmed, got %s", expense.Status)
	}
	if expense.CardID != card.ID {
		t.Errorf("expected the expense tied to card %s, got %s", card.ID, expense.CardID)
	}

	var recomputed struct {
		Balance domain.Money `json:"balance"`
	}
	code = doJSON(t, router, http.MethodPost, "/v1/accounts/"+checking.ID+"/recompute", token, nil, &recomputed)
	if code != http.StatusOK {
		t.Fatalf("recompute: expected 200, got %d", code)
	}
	if recomputed.Balance.Amount != "850.00" {
		t.Errorf("expected balance 850.00 after the expense, got %s", recomputed.Balance.Amount)
	}

	// --- Transfer between the accounts ---
	var transfer domain.TransferResult
	code = doJSON(t, router, http.MethodPost, "/v1/transfers", token, map[string]any{
		"from_account_id": checking.ID,
		"to_account_id":   savings.ID,
		"value":           map[string]string{"amount": "200.00", "currency": "BRL"},
		"date":            time.Now().UTC().Format(time.RFC3339),
		"description":     "Reserva mensal",
	}, &transfer)
	if code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d", code)
	}
	if transfer.Origin.LinkedTransactionID != transfer.Destination.ID {
		t.Errorf("transfer legs are not mutually linked")
	}

	code = doJSON(t, router, http.MethodPost, "/v1/accounts/"+checking.ID+"/recompute", token, nil, &recomputed)
	if code != http.StatusOK {
		t.Fatalf("recompute origin: expected 200, got %d", code)
	}
	if recomputed.Balance.Amount != "650.00" {
		t.Errorf("expected origin balance 650.00 after the transfer, got %s", recomputed.Balance.Amount)
	}
	code = doJSON(t, router, http.MethodPost, "/v1/accounts/"+savings.ID+"/recompute", token, nil, &recomputed)
	if code != http.StatusOK {
		t.Fatalf("recompute destination: expected 200, got %d", code)
	}
	if recomputed.Balance.Amount != "300.00" {
		t.Errorf("expected destination balance 300.00 after the transfer, got %s", recomputed.Balance.Amount)
	}

	// --- The ledger now holds three entries: the expense plus two legs ---
	var txs []domain.Transaction
	code = doJSON(t, router, http.MethodGet, "/v1/transactions", token, nil, &txs)
	if code != http.StatusOK {
		t.Fatalf("list transactions: expected 200, got %d", code)
	}
	if len(txs) != 3 {
		t.Errorf("expected 3 transactions in the log, got %d", len(txs))
	}

	// --- Loan simulation persists nothing ---
	var schedule domain.Schedule
	code = doJSON(t, router, http.MethodPost, "/v1/loans/simulate", token, map[string]any{
		"name":        "Simulação",
		"principal":   map[string]string{"amount": "10000.00", "currency": "BRL"},
		"annual_rate": 18.0,
		"method":      "PRICE",
		"start_date":  time.Now().UTC().Format(time.RFC3339),
		"term_months": 24,
	}, &schedule)
	if code != http.StatusOK {
		t.Fatalf("simulate: expected 200, got %d", code)
	}
	if len(schedule.Entries) != 24 {
		t.Errorf("expected a 24-entry schedule, got %d", len(schedule.Entries))
	}

	var loans []domain.Loan
	code = doJSON(t, router, http.MethodGet, "/v1/loans", token, nil, &loans)
	if code != http.StatusOK {
		t.Fatalf("list loans: expected 200, got %d", code)
	}
	if len(loans) != 0 {
		t.Errorf("simulation must not persist a loan, found %d", len(loans))
	}
}

func TestIntegration_TransferPairIsAtomic(t *testing.T) {
	router, provider := newStack(t)

	var login domain.AuthResult
	doJSON(t, router, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Maria", "email": "maria@example.com", "password": "correct-horse",
	}, nil)
	code := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "maria@example.com", "password": "correct-horse",
	}, &login)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}

	var checking domain.Account
	doJSON(t, router, http.MethodPost, "/v1/accounts", login.AccessToken, map[string]any{
		"name":            "Conta Corrente",
		"type":            "checking",
		"opening_balance": map[string]string{"amount": "1000.00", "currency": "BRL"},
	}, &checking)

	// Destination does not exist: nothing may be written.
	code = doJSON(t, router, http.MethodPost, "/v1/transfers", login.AccessToken, map[string]any{
		"from_account_id": checking.ID,
		"to_account_id":   "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		"value":           map[string]string{"amount": "200.00", "currency": "BRL"},
		"date":            time.Now().UTC().Format(time.RFC3339),
		"description":     "Destino inexistente",
	}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing destination, got %d", code)
	}

	provider.mu.Lock()
	remaining := len(provider.collections["transactions"])
	provider.mu.Unlock()
	if remaining != 0 {
		t.Errorf("no transfer leg may survive a failed transfer, found %d", remaining)
	}
}
