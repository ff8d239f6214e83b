package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/cache"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"
	"github.com/zegrana/finance-core-go/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- In-memory fakes for the store ports ---

type fakeAccountStore struct {
	mu               sync.Mutex
	accounts         map[string]*domain.Account
	failBalanceBatch bool
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*domain.Account{}}
}

func (f *fakeAccountStore) addAccount(balance string) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	money, _ := domain.NewMoney(balance, "BRL")
	account := &domain.Account{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		Name:           "Conta Corrente",
		Type:           domain.AccountChecking,
		Balance:        money,
		OpeningBalance: money,
		Active:         true,
	}
	f.accounts[account.ID] = account
	return account
}

func (f *fakeAccountStore) CreateAccount(_ context.Context, in *domain.CreateAccountInput) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := &domain.Account{
		ID:             uuid.New().String(),
		UserID:         in.UserID,
		Name:           in.Name,
		Type:           in.Type,
		Balance:        in.OpeningBalance,
		OpeningBalance: in.OpeningBalance,
		Active:         true,
	}
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeAccountStore) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) ListAccounts(_ context.Context, userID string, _ bool) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Account
	for _, account := range f.accounts {
		if account.UserID == userID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakeAccountStore) UpdateAccountBalance(_ context.Context, accountID string, balance domain.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	account.Balance = balance
	return nil
}

func (f *fakeAccountStore) UpdateAccountBalances(_ context.Context, updates map[string]domain.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBalanceBatch {
		return errors.New("batch write failed")
	}
	for accountID, balance := range updates {
		account, ok := f.accounts[accountID]
		if !ok {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		account.Balance = balance
	}
	return nil
}

func (f *fakeAccountStore) DeactivateAccount(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	account.Active = false
	return nil
}

func (f *fakeAccountStore) balance(accountID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[accountID].Balance.Amount
}

type fakeTransactionStore struct {
	mu              sync.Mutex
	txs             map[string]*domain.Transaction
	failPair        bool
	failUpdateBatch bool
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{txs: map[string]*domain.Transaction{}}
}

func (f *fakeTransactionStore) CreateTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *tx
	f.txs[tx.ID] = &copied
	out := copied
	return &out, nil
}

func (f *fakeTransactionStore) CreateTransactionPair(_ context.Context, origin, destination *domain.Transaction) (*domain.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPair {
		return nil, errors.New("batch insert failed")
	}
	o, d := *origin, *destination
	f.txs[o.ID] = &o
	f.txs[d.ID] = &d
	return &domain.TransferResult{Origin: origin, Destination: destination}, nil
}

func (f *fakeTransactionStore) GetTransaction(_ context.Context, txID string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[txID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	copied := *tx
	return &copied, nil
}

func (f *fakeTransactionStore) UpdateTransaction(_ context.Context, txID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyFields(txID, fields)
}

// UpdateTransactions mirrors the atomic batch of the real store: the flag
// fails the whole batch before anything is touched.
func (f *fakeTransactionStore) UpdateTransactions(_ context.Context, txIDs []string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateBatch {
		return errors.New("batch update failed")
	}
	for _, id := range txIDs {
		if _, ok := f.txs[id]; !ok {
			return &domain.ErrNotFound{Resource: "transaction", ID: id}
		}
	}
	for _, id := range txIDs {
		if err := f.applyFields(id, fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTransactionStore) applyFields(txID string, fields map[string]any) error {
	tx, ok := f.txs[txID]
	if !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	for key, value := range fields {
		switch key {
		case "status":
			tx.Status = domain.TransactionStatus(value.(string))
		case "value_amount":
			tx.Value.Amount = value.(string)
		case "value_currency":
			tx.Value.Currency = value.(string)
		case "description":
			tx.Description = value.(string)
		case "notes":
			tx.Notes = value.(string)
		case "category_id":
			tx.CategoryID = value.(string)
		case "date":
			if t, err := time.Parse(time.RFC3339, value.(string)); err == nil {
				tx.Date = t
			}
		case "splits":
			tx.Splits = value.([]domain.Split)
		case "tags":
			tx.Tags = value.([]string)
		}
	}
	return nil
}

func (f *fakeTransactionStore) DeleteTransaction(_ context.Context, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.txs, txID)
	return nil
}

func (f *fakeTransactionStore) DeleteTransactions(_ context.Context, txIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range txIDs {
		delete(f.txs, id)
	}
	return nil
}

func (f *fakeTransactionStore) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.txs {
		if filter.UserID != "" && tx.UserID != filter.UserID {
			continue
		}
		if len(filter.AccountIDs) > 0 && !containsString(filter.AccountIDs, tx.AccountID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, tx.Status) {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, tx.Type) {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (f *fakeTransactionStore) FindDuplicates(_ context.Context, accountID string, value domain.Money, date time.Time) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, err := value.Decimal()
	if err != nil {
		return nil, err
	}
	tolerance := decimal.NewFromFloat(0.01)
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.AccountID != accountID || tx.Value.Currency != value.Currency {
			continue
		}
		if tx.Date.Before(date.Add(-24*time.Hour)) || tx.Date.After(date.Add(24*time.Hour)) {
			continue
		}
		d, err := tx.Value.Decimal()
		if err != nil {
			continue
		}
		if d.Sub(target).Abs().LessThanOrEqual(tolerance) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs)
}

type fakeLoanStore struct {
	mu           sync.Mutex
	loans        map[string]*domain.Loan
	installments map[string]*domain.Installment
}

func newFakeLoanStore() *fakeLoanStore {
	return &fakeLoanStore{
		loans:        map[string]*domain.Loan{},
		installments: map[string]*domain.Installment{},
	}
}

func (f *fakeLoanStore) CreateLoan(_ context.Context, loan *domain.Loan, installments []domain.Installment) (*domain.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *loan
	f.loans[loan.ID] = &copied
	for i := range installments {
		inst := installments[i]
		f.installments[inst.ID] = &inst
	}
	out := copied
	out.Installments = installments
	return &out, nil
}

func (f *fakeLoanStore) GetLoan(_ context.Context, loanID string) (*domain.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan, ok := f.loans[loanID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	copied := *loan
	copied.Installments = nil
	for _, inst := range f.installments {
		if inst.LoanID == loanID {
			copied.Installments = append(copied.Installments, *inst)
		}
	}
	return &copied, nil
}

func (f *fakeLoanStore) ListLoans(_ context.Context, userID string, activeOnly bool) ([]domain.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Loan
	for _, loan := range f.loans {
		if loan.UserID != userID {
			continue
		}
		if activeOnly && !loan.Active {
			continue
		}
		out = append(out, *loan)
	}
	return out, nil
}

func (f *fakeLoanStore) UpdateLoan(_ context.Context, loanID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan, ok := f.loans[loanID]
	if !ok {
		return &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	for key, value := range fields {
		switch key {
		case "name":
			loan.Name = value.(string)
		case "notes":
			loan.Notes = value.(string)
		case "active":
			loan.Active = value.(bool)
		case "outstanding_amount":
			loan.OutstandingBalance.Amount = value.(string)
		case "outstanding_currency":
			loan.OutstandingBalance.Currency = value.(string)
		}
	}
	return nil
}

func (f *fakeLoanStore) DeleteLoan(_ context.Context, loanID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.loans, loanID)
	return nil
}

func (f *fakeLoanStore) GetInstallment(_ context.Context, installmentID string) (*domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.installments[installmentID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
	}
	copied := *inst
	return &copied, nil
}

func (f *fakeLoanStore) ListInstallments(_ context.Context, loanID string) ([]domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Installment
	for _, inst := range f.installments {
		if inst.LoanID == loanID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) UpdateInstallment(_ context.Context, installmentID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.installments[installmentID]
	if !ok {
		return &domain.ErrNotFound{Resource: "installment", ID: installmentID}
	}
	for key, value := range fields {
		switch key {
		case "status":
			inst.Status = domain.InstallmentStatus(value.(string))
		case "payment_date":
			if t, err := time.Parse(time.RFC3339, value.(string)); err == nil {
				inst.PaymentDate = &t
			}
		case "paid_amount":
			if inst.PaidAmount == nil {
				inst.PaidAmount = &domain.Money{}
			}
			inst.PaidAmount.Amount = value.(string)
		case "paid_currency":
			if inst.PaidAmount == nil {
				inst.PaidAmount = &domain.Money{}
			}
			inst.PaidAmount.Currency = value.(string)
		case "settlement_tx_id":
			inst.SettlementTxID = value.(string)
		}
	}
	return nil
}

func (f *fakeLoanStore) CountInstallments(_ context.Context, loanID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, inst := range f.installments {
		if inst.LoanID == loanID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLoanStore) ListOverdueInstallments(_ context.Context, userID string, asOf time.Time) ([]domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Installment
	for _, inst := range f.installments {
		loan, ok := f.loans[inst.LoanID]
		if !ok || loan.UserID != userID || !loan.Active {
			continue
		}
		if inst.Status == domain.InstallmentOpen && inst.DueDate.Before(asOf) {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) ListUpcomingInstallments(_ context.Context, userID string, from time.Time, days int) ([]domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	to := from.AddDate(0, 0, days)
	var out []domain.Installment
	for _, inst := range f.installments {
		loan, ok := f.loans[inst.LoanID]
		if !ok || loan.UserID != userID || !loan.Active {
			continue
		}
		if inst.Status == domain.InstallmentOpen && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			out = append(out, *inst)
		}
	}
	return out, nil
}

type fakeBudgetStore struct {
	mu      sync.Mutex
	budgets map[string]*domain.Budget
}

func newFakeBudgetStore() *fakeBudgetStore {
	return &fakeBudgetStore{budgets: map[string]*domain.Budget{}}
}

func (f *fakeBudgetStore) CreateBudget(_ context.Context, in *domain.CreateBudgetInput) (*domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	budget := &domain.Budget{
		ID:                    uuid.New().String(),
		UserID:                in.UserID,
		CategoryID:            in.CategoryID,
		Name:                  in.Name,
		Planned:               in.Planned,
		Spent:                 domain.ZeroMoney(in.Planned.Currency),
		PeriodKind:            in.PeriodKind,
		PeriodStart:           in.PeriodStart,
		AlertEnabled:          in.AlertEnabled,
		AlertThresholdPercent: in.AlertThresholdPercent,
		Active:                true,
	}
	f.budgets[budget.ID] = budget
	return budget, nil
}

func (f *fakeBudgetStore) GetBudget(_ context.Context, budgetID string) (*domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	budget, ok := f.budgets[budgetID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: budgetID}
	}
	copied := *budget
	return &copied, nil
}

func (f *fakeBudgetStore) GetBudgetByCategory(_ context.Context, categoryID string) (*domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, budget := range f.budgets {
		if budget.CategoryID == categoryID {
			copied := *budget
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBudgetStore) ListBudgets(_ context.Context, userID string, activeOnly bool) ([]domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Budget
	for _, budget := range f.budgets {
		if budget.UserID != userID {
			continue
		}
		if activeOnly && !budget.Active {
			continue
		}
		out = append(out, *budget)
	}
	return out, nil
}

func (f *fakeBudgetStore) UpdateBudget(_ context.Context, budgetID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	budget, ok := f.budgets[budgetID]
	if !ok {
		return &domain.ErrNotFound{Resource: "budget", ID: budgetID}
	}
	for key, value := range fields {
		switch key {
		case "name":
			budget.Name = value.(string)
		case "planned_amount":
			budget.Planned.Amount = value.(string)
		case "planned_currency":
			budget.Planned.Currency = value.(string)
		case "spent_amount":
			budget.Spent.Amount = value.(string)
		case "spent_currency":
			budget.Spent.Currency = value.(string)
		case "period_start":
			if t, err := time.Parse(time.RFC3339, value.(string)); err == nil {
				budget.PeriodStart = t
			}
		case "alert_enabled":
			budget.AlertEnabled = value.(bool)
		case "alert_threshold_percent":
			threshold := value.(float64)
			budget.AlertThresholdPercent = &threshold
		case "active":
			budget.Active = value.(bool)
		}
	}
	return nil
}

func (f *fakeBudgetStore) DeleteBudget(_ context.Context, budgetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.budgets, budgetID)
	return nil
}

type fakeCardStore struct {
	mu    sync.Mutex
	cards map[string]*domain.Card
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: map[string]*domain.Card{}}
}

func (f *fakeCardStore) CreateCard(_ context.Context, card *domain.Card) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *card
	f.cards[card.ID] = &copied
	out := copied
	return &out, nil
}

func (f *fakeCardStore) GetCard(_ context.Context, cardID string) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[cardID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "card", ID: cardID}
	}
	copied := *card
	return &copied, nil
}

func (f *fakeCardStore) ListCards(_ context.Context, userID string, activeOnly bool, cardType domain.CardType) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Card
	for _, card := range f.cards {
		if card.UserID != userID {
			continue
		}
		if activeOnly && !card.Active {
			continue
		}
		if cardType != "" && card.Type != cardType {
			continue
		}
		out = append(out, *card)
	}
	return out, nil
}

func (f *fakeCardStore) UpdateCard(_ context.Context, cardID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[cardID]
	if !ok {
		return &domain.ErrNotFound{Resource: "card", ID: cardID}
	}
	for key, value := range fields {
		switch key {
		case "name":
			card.Name = value.(string)
		case "account_id":
			card.AccountID = value.(string)
		case "credit_limit_amount":
			if card.CreditLimit == nil {
				card.CreditLimit = &domain.Money{}
			}
			card.CreditLimit.Amount = value.(string)
		case "credit_limit_currency":
			if card.CreditLimit == nil {
				card.CreditLimit = &domain.Money{}
			}
			card.CreditLimit.Currency = value.(string)
		case "due_day":
			card.DueDay = value.(int)
		case "closing_day":
			card.ClosingDay = value.(int)
		case "best_purchase_day":
			card.BestPurchaseDay = value.(int)
		case "color":
			card.Color = value.(string)
		case "notes":
			card.Notes = value.(string)
		case "active":
			card.Active = value.(bool)
		}
	}
	return nil
}

func (f *fakeCardStore) DeactivateCard(_ context.Context, cardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[cardID]
	if !ok {
		return &domain.ErrNotFound{Resource: "card", ID: cardID}
	}
	card.Active = false
	return nil
}

type fakeCategoryStore struct {
	mu         sync.Mutex
	categories map[string]*domain.Category
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{categories: map[string]*domain.Category{}}
}

func (f *fakeCategoryStore) addCategory(name string) *domain.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	category := &domain.Category{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Name:   name,
		Type:   domain.CategoryExpense,
		Active: true,
	}
	f.categories[category.ID] = category
	return category
}

func (f *fakeCategoryStore) GetCategory(_ context.Context, categoryID string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	category, ok := f.categories[categoryID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	copied := *category
	return &copied, nil
}

func (f *fakeCategoryStore) ListCategories(_ context.Context, userID string, _ bool) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Category
	for _, category := range f.categories {
		if category.UserID == userID {
			out = append(out, *category)
		}
	}
	return out, nil
}

// recordingWarnSink captures warning codes for assertions.
type recordingWarnSink struct {
	mu    sync.Mutex
	codes []string
}

func (r *recordingWarnSink) Warn(_ context.Context, code string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *recordingWarnSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

// --- Wiring helpers ---

type ledgerFixture struct {
	accounts   *fakeAccountStore
	txs        *fakeTransactionStore
	cats       *fakeCategoryStore
	sink       *recordingWarnSink
	metrics    *observability.Metrics
	categories *service.CategoryService
	ledger     *service.LedgerService
}

func newLedgerFixture() *ledgerFixture {
	accounts := newFakeAccountStore()
	txs := newFakeTransactionStore()
	cats := newFakeCategoryStore()
	sink := &recordingWarnSink{}
	metrics := observability.NewMetrics()
	categorySvc := service.NewCategoryService(cats, cache.New[*domain.Category](time.Minute), metrics)
	ledger := service.NewLedgerService(txs, accounts, categorySvc, sink, metrics, zap.NewNop())
	return &ledgerFixture{
		accounts:   accounts,
		txs:        txs,
		cats:       cats,
		sink:       sink,
		metrics:    metrics,
		categories: categorySvc,
		ledger:     ledger,
	}
}

var _ port.WarningSink = (*recordingWarnSink)(nil)

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TransactionStatus, v domain.TransactionStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(list []domain.TransactionType, v domain.TransactionType) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
