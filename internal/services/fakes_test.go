package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

type fakeAlertStore struct {
	alerts    []core.Alert
	nextID    int64
	insertErr error
}

func (f *fakeAlertStore) InsertAlert(_ context.Context, typ, message string, data []byte) (core.Alert, error) {
	if f.insertErr != nil {
		return core.Alert{}, f.insertErr
	}
	f.nextID++
	a := core.Alert{
		ID:        f.nextID,
		Type:      typ,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeAlertStore) GetAlert(_ context.Context, id int64) (core.Alert, error) {
	for _, a := range f.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Alert{}, storage.ErrNotFound
}

func (f *fakeAlertStore) ListAlerts(context.Context) ([]core.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAlertStore) LatestAlertByType(_ context.Context, typ string) (core.Alert, error) {
	for i := len(f.alerts) - 1; i >= 0; i-- {
		if f.alerts[i].Type == typ {
			return f.alerts[i], nil
		}
	}
	return core.Alert{}, storage.ErrNotFound
}

func (f *fakeAlertStore) MarkAlertRead(_ context.Context, id int64) error {
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			f.alerts[i].Read = true
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeAlertStore) MarkAllAlertsRead(context.Context) error {
	for i := range f.alerts {
		f.alerts[i].Read = true
	}
	return nil
}

type fakeGoalStore struct {
	goals   map[core.Category]core.Goal
	budgets map[core.Month]core.Budget
	nextID  int64
}

func newFakeGoalStore() *fakeGoalStore {
	return &fakeGoalStore{
		goals:   make(map[core.Category]core.Goal),
		budgets: make(map[core.Month]core.Budget),
	}
}

func (f *fakeGoalStore) UpsertGoal(_ context.Context, category core.Category, limitCents int64) (core.Goal, error) {
	g, ok := f.goals[category]
	if !ok {
		f.nextID++
		g = core.Goal{ID: f.nextID, Category: category, CreatedAt: time.Now()}
	}
	g.MonthlyLimit = core.Money{Cents: limitCents}
	g.UpdatedAt = time.Now()
	f.goals[category] = g
	return g, nil
}

func (f *fakeGoalStore) GoalByCategory(_ context.Context, category core.Category) (core.Goal, error) {
	if g, ok := f.goals[category]; ok {
		return g, nil
	}
	return core.Goal{}, storage.ErrNotFound
}

func (f *fakeGoalStore) ListGoals(context.Context) ([]core.Goal, error) {
	out := make([]core.Goal, 0, len(f.goals))
	for _, c := range core.Categories() {
		if g, ok := f.goals[c]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGoalStore) UpdateGoal(_ context.Context, id int64, p storage.GoalPatch) (core.Goal, error) {
	if p.Empty() {
		return core.Goal{}, core.ErrNoFieldsToUpdate
	}
	for cat, g := range f.goals {
		if g.ID != id {
			continue
		}
		delete(f.goals, cat)
		if p.Category != nil {
			g.Category = *p.Category
		}
		if p.MonthlyLimit != nil {
			g.MonthlyLimit = *p.MonthlyLimit
		}
		f.goals[g.Category] = g
		return g, nil
	}
	return core.Goal{}, storage.ErrNotFound
}

func (f *fakeGoalStore) DeleteGoal(_ context.Context, id int64) error {
	for cat, g := range f.goals {
		if g.ID == id {
			delete(f.goals, cat)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeGoalStore) UpsertBudget(_ context.Context, month core.Month, limitCents int64) (core.Budget, error) {
	b, ok := f.budgets[month]
	if !ok {
		f.nextID++
		b = core.Budget{ID: f.nextID, Month: month}
	}
	b.TotalLimit = core.Money{Cents: limitCents}
	f.budgets[month] = b
	return b, nil
}

func (f *fakeGoalStore) GetBudget(_ context.Context, month core.Month) (core.Budget, error) {
	if b, ok := f.budgets[month]; ok {
		return b, nil
	}
	return core.Budget{}, storage.ErrNotFound
}

type fakeAggregateStore struct {
	totals    map[core.Month]storage.MonthTotals
	byCat     map[core.Month][]storage.CategoryTotal
	spent     map[string]int64
	recurring storage.RecurringTotals
}

func newFakeAggregateStore() *fakeAggregateStore {
	return &fakeAggregateStore{
		totals: make(map[core.Month]storage.MonthTotals),
		byCat:  make(map[core.Month][]storage.CategoryTotal),
		spent:  make(map[string]int64),
	}
}

func spentKey(category core.Category, month core.Month) string {
	return string(category) + "|" + string(month)
}

func (f *fakeAggregateStore) MonthTotals(_ context.Context, month core.Month) (storage.MonthTotals, error) {
	return f.totals[month], nil
}

func (f *fakeAggregateStore) ExpensesByCategory(_ context.Context, month core.Month) ([]storage.CategoryTotal, error) {
	return f.byCat[month], nil
}

func (f *fakeAggregateStore) CategorySpent(_ context.Context, category core.Category, month core.Month) (int64, error) {
	return f.spent[spentKey(category, month)], nil
}

func (f *fakeAggregateStore) RecurringExpenseTotals(context.Context) (storage.RecurringTotals, error) {
	return f.recurring, nil
}

type fakeTransactionStore struct {
	rows      []storage.TransactionRow
	nextID    int64
	createErr map[int]error // indexed by call count
	calls     int
}

func (f *fakeTransactionStore) CreateTransaction(_ context.Context, t core.Transaction) (storage.TransactionRow, error) {
	f.calls++
	if err := f.createErr[f.calls]; err != nil {
		return storage.TransactionRow{}, err
	}
	f.nextID++
	t.ID = f.nextID
	row := storage.TransactionRow{Transaction: t}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeTransactionStore) GetTransaction(_ context.Context, id int64) (storage.TransactionRow, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return storage.TransactionRow{}, storage.ErrNotFound
}

func (f *fakeTransactionStore) ListTransactions(context.Context, storage.TransactionFilter) ([]storage.TransactionRow, error) {
	return f.rows, nil
}

func (f *fakeTransactionStore) ExportTransactions(context.Context, string) ([]storage.TransactionRow, error) {
	return f.rows, nil
}

// ListRecurringTransactions mirrors the store's newest-first ordering.
func (f *fakeTransactionStore) ListRecurringTransactions(context.Context) ([]storage.TransactionRow, error) {
	var out []storage.TransactionRow
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].IsRecurring() {
			out = append(out, f.rows[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date > out[b].Date
	})
	return out, nil
}

func (f *fakeTransactionStore) UpdateTransaction(_ context.Context, id int64, p storage.TransactionPatch) (storage.TransactionRow, error) {
	if p.Empty() {
		return storage.TransactionRow{}, core.ErrNoFieldsToUpdate
	}
	for i := range f.rows {
		if f.rows[i].ID != id {
			continue
		}
		if p.Amount != nil {
			f.rows[i].Amount = *p.Amount
		}
		if p.Category != nil {
			f.rows[i].Category = *p.Category
		}
		return f.rows[i], nil
	}
	return storage.TransactionRow{}, storage.ErrNotFound
}

func (f *fakeTransactionStore) DeleteTransaction(_ context.Context, id int64) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishAlertCreated(_ context.Context, id int64, typ, message string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

type fakeWatcher struct {
	categories []core.Category
	months     []core.Month
}

func (f *fakeWatcher) EvaluateGoalAfterExpense(_ context.Context, category core.Category, month core.Month) {
	f.categories = append(f.categories, category)
	f.months = append(f.months, month)
}
