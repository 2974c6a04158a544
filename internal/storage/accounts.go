package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bolso/internal/core"
)

// AccountPatch is a partial account update; nil means "leave unchanged".
type AccountPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Icon == nil && p.Color == nil
}

func scanAccount(scan func(dest ...any) error) (core.Account, error) {
	var (
		a       core.Account
		created sql.NullTime
	)
	if err := scan(&a.ID, &a.Name, &a.Icon, &a.Color, &created); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = created.Time
	return a, nil
}

// CreateAccount inserts an account, applying the default icon and color.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.Icon == "" {
		a.Icon = core.DefaultAccountIcon
	}
	if a.Color == "" {
		a.Color = core.DefaultAccountColor
	}

	id, err := s.insertID(ctx,
		`INSERT INTO accounts (name, icon, color) VALUES (?, ?, ?)`,
		strings.TrimSpace(a.Name), a.Icon, a.Color)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(s.queryRow(ctx,
		`SELECT id, name, icon, color, created_at FROM accounts WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.query(ctx, `SELECT id, name, icon, color, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, p AccountPatch) (core.Account, error) {
	if p.Empty() {
		return core.Account{}, core.ErrNoFieldsToUpdate
	}

	var (
		sets []string
		args []any
	)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *p.Icon)
	}
	if p.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *p.Color)
	}
	args = append(args, id)

	res, err := s.exec(ctx, `UPDATE accounts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account %d: %w", id, err)
	}
	if err := rowsAffected(res); err != nil {
		return core.Account{}, err
	}
	return s.GetAccount(ctx, id)
}

// DeleteAccount removes an account. Transactions keep their rows: the
// account reference is weak (no foreign key), so stored ids dangle and
// read back with a NULL account name through the join.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return rowsAffected(res)
}
