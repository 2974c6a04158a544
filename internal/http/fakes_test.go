package http

import (
	"context"
	"io"
	"log/slog"
	"time"

	"bolso/internal/cache"
	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/services"
	"bolso/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

// memStore is one in-memory implementation of every store interface the
// services need, so handler tests run against a full service stack.
type memStore struct {
	txs      []storage.TransactionRow
	accounts []core.Account
	goals    map[core.Category]core.Goal
	budgets  map[core.Month]core.Budget
	alerts   []core.Alert

	nextTx      int64
	nextAccount int64
	nextGoal    int64
	nextBudget  int64
	nextAlert   int64
}

func newMemStore() *memStore {
	return &memStore{
		goals:   make(map[core.Category]core.Goal),
		budgets: make(map[core.Month]core.Budget),
	}
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) (storage.TransactionRow, error) {
	m.nextTx++
	t.ID = m.nextTx
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	row := storage.TransactionRow{Transaction: t}
	if t.AccountID != nil {
		for _, a := range m.accounts {
			if a.ID == *t.AccountID {
				name, icon := a.Name, a.Icon
				row.AccountName = &name
				row.AccountIcon = &icon
			}
		}
	}
	m.txs = append(m.txs, row)
	return row, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (storage.TransactionRow, error) {
	for _, row := range m.txs {
		if row.ID == id {
			return row, nil
		}
	}
	return storage.TransactionRow{}, storage.ErrNotFound
}

func (m *memStore) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error) {
	var out []storage.TransactionRow
	for _, row := range m.txs {
		if f.Month != "" && row.Date.Month().String() != f.Month {
			continue
		}
		if f.Type != "" && string(row.Type) != f.Type {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) ExportTransactions(_ context.Context, month string) ([]storage.TransactionRow, error) {
	return m.ListTransactions(context.Background(), storage.TransactionFilter{Month: month})
}

func (m *memStore) UpdateTransaction(_ context.Context, id int64, p storage.TransactionPatch) (storage.TransactionRow, error) {
	for i := range m.txs {
		if m.txs[i].ID != id {
			continue
		}
		t := &m.txs[i].Transaction
		if p.Type != nil {
			t.Type = *p.Type
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.Amount != nil {
			t.Amount = *p.Amount
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Date != nil {
			t.Date = *p.Date
		}
		if p.Member != nil {
			t.Member = *p.Member
		}
		if p.HasTags {
			t.Tags = p.Tags
		}
		if p.HasAccount {
			t.AccountID = p.AccountID
		}
		if p.HasRecurs {
			t.Recurs = p.SetRecurs
		}
		t.UpdatedAt = time.Now()
		return m.txs[i], nil
	}
	return storage.TransactionRow{}, storage.ErrNotFound
}

func (m *memStore) DeleteTransaction(_ context.Context, id int64) error {
	for i := range m.txs {
		if m.txs[i].ID == id {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) MonthTotals(_ context.Context, month core.Month) (storage.MonthTotals, error) {
	var t storage.MonthTotals
	for _, row := range m.txs {
		if row.Date.Month() != month {
			continue
		}
		if row.Type == core.Income {
			t.IncomeCents += row.Amount.Cents
		} else {
			t.ExpenseCents += row.Amount.Cents
		}
	}
	return t, nil
}

func (m *memStore) ExpensesByCategory(_ context.Context, month core.Month) ([]storage.CategoryTotal, error) {
	byCat := make(map[core.Category]*storage.CategoryTotal)
	var out []storage.CategoryTotal
	for _, row := range m.txs {
		if row.Date.Month() != month || row.Type != core.Expense {
			continue
		}
		if existing, ok := byCat[row.Category]; ok {
			existing.TotalCents += row.Amount.Cents
			existing.Count++
			continue
		}
		byCat[row.Category] = &storage.CategoryTotal{
			Category:   row.Category,
			TotalCents: row.Amount.Cents,
			Count:      1,
		}
	}
	for _, total := range byCat {
		out = append(out, *total)
	}
	return out, nil
}

func (m *memStore) CategorySpent(_ context.Context, category core.Category, month core.Month) (int64, error) {
	var spent int64
	for _, row := range m.txs {
		if row.Type == core.Expense && row.Category == category && row.Date.Month() == month {
			spent += row.Amount.Cents
		}
	}
	return spent, nil
}

func (m *memStore) RecurringExpenseTotals(context.Context) (storage.RecurringTotals, error) {
	var t storage.RecurringTotals
	for _, row := range m.txs {
		if row.Type == core.Expense && row.IsRecurring() {
			t.Count++
			t.TotalCents += row.Amount.Cents
		}
	}
	return t, nil
}

func (m *memStore) UpsertGoal(_ context.Context, category core.Category, limitCents int64) (core.Goal, error) {
	goal, ok := m.goals[category]
	if !ok {
		m.nextGoal++
		goal = core.Goal{ID: m.nextGoal, Category: category, CreatedAt: time.Now()}
	}
	goal.MonthlyLimit = core.Money{Cents: limitCents}
	goal.UpdatedAt = time.Now()
	m.goals[category] = goal
	return goal, nil
}

func (m *memStore) GoalByCategory(_ context.Context, category core.Category) (core.Goal, error) {
	if goal, ok := m.goals[category]; ok {
		return goal, nil
	}
	return core.Goal{}, storage.ErrNotFound
}

func (m *memStore) ListGoals(context.Context) ([]core.Goal, error) {
	var out []core.Goal
	for _, category := range core.Categories() {
		if goal, ok := m.goals[category]; ok {
			out = append(out, goal)
		}
	}
	return out, nil
}

func (m *memStore) UpdateGoal(_ context.Context, id int64, p storage.GoalPatch) (core.Goal, error) {
	for category, goal := range m.goals {
		if goal.ID != id {
			continue
		}
		if p.Category != nil {
			delete(m.goals, category)
			goal.Category = *p.Category
		}
		if p.MonthlyLimit != nil {
			goal.MonthlyLimit = *p.MonthlyLimit
		}
		goal.UpdatedAt = time.Now()
		m.goals[goal.Category] = goal
		return goal, nil
	}
	return core.Goal{}, storage.ErrNotFound
}

func (m *memStore) DeleteGoal(_ context.Context, id int64) error {
	for category, goal := range m.goals {
		if goal.ID == id {
			delete(m.goals, category)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) UpsertBudget(_ context.Context, month core.Month, limitCents int64) (core.Budget, error) {
	budget, ok := m.budgets[month]
	if !ok {
		m.nextBudget++
		budget = core.Budget{ID: m.nextBudget, Month: month, CreatedAt: time.Now()}
	}
	budget.TotalLimit = core.Money{Cents: limitCents}
	budget.UpdatedAt = time.Now()
	m.budgets[month] = budget
	return budget, nil
}

func (m *memStore) GetBudget(_ context.Context, month core.Month) (core.Budget, error) {
	if budget, ok := m.budgets[month]; ok {
		return budget, nil
	}
	return core.Budget{}, storage.ErrNotFound
}

func (m *memStore) InsertAlert(_ context.Context, typ, message string, data []byte) (core.Alert, error) {
	m.nextAlert++
	a := core.Alert{
		ID:        m.nextAlert,
		Type:      typ,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	m.alerts = append(m.alerts, a)
	return a, nil
}

func (m *memStore) GetAlert(_ context.Context, id int64) (core.Alert, error) {
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Alert{}, storage.ErrNotFound
}

func (m *memStore) ListAlerts(context.Context) ([]core.Alert, error) {
	return m.alerts, nil
}

func (m *memStore) LatestAlertByType(_ context.Context, typ string) (core.Alert, error) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].Type == typ {
			return m.alerts[i], nil
		}
	}
	return core.Alert{}, storage.ErrNotFound
}

func (m *memStore) MarkAlertRead(_ context.Context, id int64) error {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Read = true
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) MarkAllAlertsRead(context.Context) error {
	for i := range m.alerts {
		m.alerts[i].Read = true
	}
	return nil
}

func (m *memStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	m.nextAccount++
	a.ID = m.nextAccount
	if a.Icon == "" {
		a.Icon = "💳"
	}
	if a.Color == "" {
		a.Color = "#1e2a5e"
	}
	a.CreatedAt = time.Now()
	m.accounts = append(m.accounts, a)
	return a, nil
}

func (m *memStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Account{}, storage.ErrNotFound
}

func (m *memStore) ListAccounts(context.Context) ([]core.Account, error) {
	return m.accounts, nil
}

func (m *memStore) UpdateAccount(_ context.Context, id int64, p storage.AccountPatch) (core.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].ID != id {
			continue
		}
		if p.Name != nil {
			m.accounts[i].Name = *p.Name
		}
		if p.Icon != nil {
			m.accounts[i].Icon = *p.Icon
		}
		if p.Color != nil {
			m.accounts[i].Color = *p.Color
		}
		return m.accounts[i], nil
	}
	return core.Account{}, storage.ErrNotFound
}

func (m *memStore) DeleteAccount(_ context.Context, id int64) error {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// newTestServer wires a full service stack over one memStore.
func newTestServer(store *memStore, apiKey string) *Server {
	return newTestServerCached(store, apiKey, nil)
}

func newTestServerCached(store *memStore, apiKey string, cacheStore cache.Store) *Server {
	logger := testLogger()
	alerts := services.NewAlertService(store, store, store, nil, logger)
	return NewServer(":0", Deps{
		Transactions: services.NewTransactionService(store, alerts, logger),
		Insights:     services.NewInsightService(store, store, store, logger),
		Goals:        services.NewGoalService(store, logger),
		Alerts:       alerts,
		Accounts:     services.NewAccountService(store, logger),
		Cache:        cacheStore,
		APIKey:       apiKey,
		Logger:       logger,
	})
}
