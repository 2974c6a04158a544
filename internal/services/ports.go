// Package services holds the application logic between the HTTP surface and
// the store: validation, aggregation, goal tracking and alert emission.
package services

import (
	"context"

	"bolso/internal/core"
	"bolso/internal/storage"
)

// TransactionStore is the slice of storage the transaction service needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (storage.TransactionRow, error)
	GetTransaction(ctx context.Context, id int64) (storage.TransactionRow, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error)
	ExportTransactions(ctx context.Context, month string) ([]storage.TransactionRow, error)
	UpdateTransaction(ctx context.Context, id int64, p storage.TransactionPatch) (storage.TransactionRow, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// AggregateStore answers the monthly read queries.
type AggregateStore interface {
	MonthTotals(ctx context.Context, month core.Month) (storage.MonthTotals, error)
	ExpensesByCategory(ctx context.Context, month core.Month) ([]storage.CategoryTotal, error)
	CategorySpent(ctx context.Context, category core.Category, month core.Month) (int64, error)
	RecurringExpenseTotals(ctx context.Context) (storage.RecurringTotals, error)
}

// GoalStore persists category goals and the monthly budget cap.
type GoalStore interface {
	UpsertGoal(ctx context.Context, category core.Category, limitCents int64) (core.Goal, error)
	GoalByCategory(ctx context.Context, category core.Category) (core.Goal, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, id int64, p storage.GoalPatch) (core.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
	UpsertBudget(ctx context.Context, month core.Month, limitCents int64) (core.Budget, error)
	GetBudget(ctx context.Context, month core.Month) (core.Budget, error)
}

// AlertStore persists alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, typ, message string, data []byte) (core.Alert, error)
	GetAlert(ctx context.Context, id int64) (core.Alert, error)
	ListAlerts(ctx context.Context) ([]core.Alert, error)
	LatestAlertByType(ctx context.Context, typ string) (core.Alert, error)
	MarkAlertRead(ctx context.Context, id int64) error
	MarkAllAlertsRead(ctx context.Context) error
}

// AlertPublisher pushes alert-created events to the message bus.
type AlertPublisher interface {
	PublishAlertCreated(ctx context.Context, id int64, typ, message string) error
}
