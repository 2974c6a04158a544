package storage

import (
	"context"
	"fmt"

	"bolso/internal/core"
)

type (
	// MonthTotals is the income/expense split for one month, zero when the
	// month has no rows.
	MonthTotals struct {
		IncomeCents  int64
		ExpenseCents int64
	}

	// CategoryTotal is the expense sum and row count for one category.
	CategoryTotal struct {
		Category   core.Category
		TotalCents int64
		Count      int
	}

	// RecurringTotals summarizes the recurring expense entries in the ledger.
	RecurringTotals struct {
		Count      int
		TotalCents int64
	}
)

// MonthTotals sums income and expense amounts for one month. Months with no
// activity return zeros, not an error.
func (s *Store) MonthTotals(ctx context.Context, month core.Month) (MonthTotals, error) {
	var t MonthTotals
	err := s.queryRow(ctx, `SELECT
		COALESCE(SUM(CASE WHEN t.type = 'income' THEN t.amount_cents ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN t.type = 'expense' THEN t.amount_cents ELSE 0 END), 0)
		FROM transactions t WHERE `+s.dialect.MonthExpr("t.date")+` = ?`, month).
		Scan(&t.IncomeCents, &t.ExpenseCents)
	if err != nil {
		return MonthTotals{}, fmt.Errorf("month totals %s: %w", month, err)
	}
	return t, nil
}

// ExpensesByCategory groups one month's expenses by category, descending by
// amount. Categories with no rows are omitted, not zero-filled.
func (s *Store) ExpensesByCategory(ctx context.Context, month core.Month) ([]CategoryTotal, error) {
	rows, err := s.query(ctx, `SELECT t.category, SUM(t.amount_cents), COUNT(*)
		FROM transactions t
		WHERE t.type = 'expense' AND `+s.dialect.MonthExpr("t.date")+` = ?
		GROUP BY t.category ORDER BY SUM(t.amount_cents) DESC`, month)
	if err != nil {
		return nil, fmt.Errorf("expenses by category %s: %w", month, err)
	}
	defer rows.Close()

	out := make([]CategoryTotal, 0)
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.TotalCents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// CategorySpent sums one category's expenses for one month, zero when none.
func (s *Store) CategorySpent(ctx context.Context, category core.Category, month core.Month) (int64, error) {
	var cents int64
	err := s.queryRow(ctx, `SELECT COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		WHERE t.type = 'expense' AND t.category = ? AND `+s.dialect.MonthExpr("t.date")+` = ?`,
		category, month).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("category spent %s %s: %w", category, month, err)
	}
	return cents, nil
}

// RecurringExpenseTotals counts and sums every recurring expense entry,
// independent of month.
func (s *Store) RecurringExpenseTotals(ctx context.Context) (RecurringTotals, error) {
	var r RecurringTotals
	err := s.queryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		WHERE t.is_recurring = ? AND t.type = 'expense'`, true).
		Scan(&r.Count, &r.TotalCents)
	if err != nil {
		return RecurringTotals{}, fmt.Errorf("recurring totals: %w", err)
	}
	return r, nil
}
