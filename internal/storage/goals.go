package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bolso/internal/core"
)

// GoalPatch is a partial goal update addressed by id.
type GoalPatch struct {
	Category     *core.Category
	MonthlyLimit *core.Money
}

func (p GoalPatch) Empty() bool {
	return p.Category == nil && p.MonthlyLimit == nil
}

func scanGoal(scan func(dest ...any) error) (core.Goal, error) {
	var (
		g                core.Goal
		created, updated sql.NullTime
	)
	if err := scan(&g.ID, &g.Category, &g.MonthlyLimit.Cents, &created, &updated); err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = created.Time
	g.UpdatedAt = updated.Time
	return g, nil
}

// UpsertGoal inserts or overwrites the goal for a category. Category is the
// natural unique key; a conflict updates the limit and bumps updated_at, so
// repeating the same upsert leaves exactly one row.
func (s *Store) UpsertGoal(ctx context.Context, category core.Category, limitCents int64) (core.Goal, error) {
	_, err := s.exec(ctx, `INSERT INTO goals (category, monthly_limit_cents)
		VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET monthly_limit_cents = excluded.monthly_limit_cents, updated_at = CURRENT_TIMESTAMP`,
		category, limitCents)
	if err != nil {
		return core.Goal{}, fmt.Errorf("upsert goal %s: %w", category, err)
	}
	return s.GoalByCategory(ctx, category)
}

// GoalByCategory fetches one goal, ErrNotFound when the category has none.
func (s *Store) GoalByCategory(ctx context.Context, category core.Category) (core.Goal, error) {
	g, err := scanGoal(s.queryRow(ctx, `SELECT id, category, monthly_limit_cents, created_at, updated_at
		FROM goals WHERE category = ?`, category).Scan)
	if err == sql.ErrNoRows {
		return core.Goal{}, ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %s: %w", category, err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.query(ctx, `SELECT id, category, monthly_limit_cents, created_at, updated_at
		FROM goals ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, id int64, p GoalPatch) (core.Goal, error) {
	if p.Empty() {
		return core.Goal{}, core.ErrNoFieldsToUpdate
	}

	var (
		sets []string
		args []any
	)
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.MonthlyLimit != nil {
		sets = append(sets, "monthly_limit_cents = ?")
		args = append(args, p.MonthlyLimit.Cents)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.exec(ctx, `UPDATE goals SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	if err := rowsAffected(res); err != nil {
		return core.Goal{}, err
	}

	g, err := scanGoal(s.queryRow(ctx, `SELECT id, category, monthly_limit_cents, created_at, updated_at
		FROM goals WHERE id = ?`, id).Scan)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return rowsAffected(res)
}

func scanBudget(scan func(dest ...any) error) (core.Budget, error) {
	var (
		b                core.Budget
		created, updated sql.NullTime
	)
	if err := scan(&b.ID, &b.Month, &b.TotalLimit.Cents, &created, &updated); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = created.Time
	b.UpdatedAt = updated.Time
	return b, nil
}

// UpsertBudget inserts or overwrites the overall cap for a month, keyed by
// the month's natural unique column.
func (s *Store) UpsertBudget(ctx context.Context, month core.Month, limitCents int64) (core.Budget, error) {
	_, err := s.exec(ctx, `INSERT INTO budget (month, total_limit_cents)
		VALUES (?, ?)
		ON CONFLICT (month) DO UPDATE SET total_limit_cents = excluded.total_limit_cents, updated_at = CURRENT_TIMESTAMP`,
		month, limitCents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget %s: %w", month, err)
	}
	return s.GetBudget(ctx, month)
}

// GetBudget fetches the cap for one month, ErrNotFound when unset.
func (s *Store) GetBudget(ctx context.Context, month core.Month) (core.Budget, error) {
	b, err := scanBudget(s.queryRow(ctx, `SELECT id, month, total_limit_cents, created_at, updated_at
		FROM budget WHERE month = ?`, month).Scan)
	if err == sql.ErrNoRows {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", month, err)
	}
	return b, nil
}
