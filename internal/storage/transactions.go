package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bolso/internal/core"
)

// TransactionRow is a ledger entry plus the weakly-joined account fields.
type TransactionRow struct {
	core.Transaction
	AccountName *string
	AccountIcon *string
}

// MarshalJSON renders the row in the API's wire shape: recurrence splits
// into an is_recurring flag plus a nullable cadence, and tags never come
// out as null.
func (r TransactionRow) MarshalJSON() ([]byte, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(struct {
		ID          int64                `json:"id"`
		Type        core.TransactionType `json:"type"`
		Category    core.Category        `json:"category"`
		Description string               `json:"description"`
		Amount      core.Money           `json:"amount"`
		Date        core.Date            `json:"date"`
		Member      core.Member          `json:"member"`
		Tags        []string             `json:"tags"`
		AccountID   *int64               `json:"account_id"`
		AccountName *string              `json:"account_name"`
		AccountIcon *string              `json:"account_icon"`
		IsRecurring bool                 `json:"is_recurring"`
		Recurrence  *core.Recurrence     `json:"recurrence"`
		CreatedAt   time.Time            `json:"created_at"`
		UpdatedAt   time.Time            `json:"updated_at"`
	}{
		ID:          r.ID,
		Type:        r.Type,
		Category:    r.Category,
		Description: r.Description,
		Amount:      r.Amount,
		Date:        r.Date,
		Member:      r.Member,
		Tags:        tags,
		AccountID:   r.AccountID,
		AccountName: r.AccountName,
		AccountIcon: r.AccountIcon,
		IsRecurring: r.IsRecurring(),
		Recurrence:  r.Recurs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	})
}

// TransactionPatch is a partial update; nil pointer means "leave unchanged".
// Tags and AccountID carry an explicit presence flag so the caller can
// distinguish "not sent" from "clear it". SetRecurs replaces the recurrence
// value (nil clears it) when HasRecurs is set.
type TransactionPatch struct {
	Type        *core.TransactionType
	Category    *core.Category
	Amount      *core.Money
	Description *string
	Date        *core.Date
	Member      *core.Member
	Tags        []string
	HasTags     bool
	AccountID   *int64
	HasAccount  bool
	SetRecurs   *core.Recurrence
	HasRecurs   bool
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Type == nil && p.Category == nil && p.Amount == nil &&
		p.Description == nil && p.Date == nil && p.Member == nil &&
		!p.HasTags && !p.HasAccount && !p.HasRecurs
}

func (s *Store) transactionSelect() string {
	return `SELECT t.id, t.type, t.category, t.description, t.amount_cents, ` +
		s.dialect.DateExpr("t.date") + `, t.member, t.tags, t.account_id,
		a.name, a.icon, t.is_recurring, t.recurrence, t.created_at, t.updated_at
		FROM transactions t LEFT JOIN accounts a ON t.account_id = a.id`
}

func scanTransaction(scan func(dest ...any) error) (TransactionRow, error) {
	var (
		row        TransactionRow
		tagsJSON   string
		accountID  sql.NullInt64
		name, icon sql.NullString
		recurring  bool
		recurrence sql.NullString
		created    sql.NullTime
		updated    sql.NullTime
	)
	err := scan(&row.ID, &row.Type, &row.Category, &row.Description,
		&row.Amount.Cents, &row.Date, &row.Member, &tagsJSON, &accountID,
		&name, &icon, &recurring, &recurrence, &created, &updated)
	if err != nil {
		return TransactionRow{}, err
	}

	row.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &row.Tags); err != nil {
			return TransactionRow{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if accountID.Valid {
		row.AccountID = &accountID.Int64
	}
	if name.Valid {
		row.AccountName = &name.String
	}
	if icon.Valid {
		row.AccountIcon = &icon.String
	}
	if recurring && recurrence.Valid {
		if r := core.Recurrence(recurrence.String); r.Valid() {
			row.Recurs = &r
		}
	}
	row.CreatedAt = created.Time
	row.UpdatedAt = updated.Time
	return row, nil
}

// CreateTransaction inserts a validated, normalized entry and returns the
// stored row.
func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (TransactionRow, error) {
	tags, err := json.Marshal(core.CleanTags(t.Tags))
	if err != nil {
		return TransactionRow{}, fmt.Errorf("encode tags: %w", err)
	}
	var recurrence *string
	if t.Recurs != nil {
		v := string(*t.Recurs)
		recurrence = &v
	}

	id, err := s.insertID(ctx, `INSERT INTO transactions
		(type, category, description, amount_cents, date, member, tags, account_id, is_recurring, recurrence)
		VALUES (?, ?, ?, ?, `+s.dialect.DateParam()+`, ?, ?, ?, ?, ?)`,
		t.Type, t.Category, t.Description, t.Amount.Cents, t.Date, t.Member,
		string(tags), t.AccountID, t.IsRecurring(), recurrence)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("insert transaction: %w", err)
	}

	return s.GetTransaction(ctx, id)
}

// GetTransaction fetches one entry by id, ErrNotFound when absent.
func (s *Store) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row, err := scanTransaction(s.queryRow(ctx, s.transactionSelect()+` WHERE t.id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return TransactionRow{}, ErrNotFound
	}
	if err != nil {
		return TransactionRow{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row, nil
}

// ListTransactions applies the compiled filter, page clamp and sort.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error) {
	where := buildTransactionWhere(f, s.dialect)
	query := s.transactionSelect() + where.SQL() +
		` ORDER BY t.date ` + f.OrderDir() + `, t.id DESC LIMIT ? OFFSET ?`
	args := append(where.args, f.EffectiveLimit(), f.EffectiveOffset())

	return s.listTransactions(ctx, query, args...)
}

// ExportTransactions lists every entry, optionally restricted to one month,
// newest first and unpaginated.
func (s *Store) ExportTransactions(ctx context.Context, month string) ([]TransactionRow, error) {
	query := s.transactionSelect()
	var args []any
	if monthRe.MatchString(month) {
		query += ` WHERE ` + s.dialect.MonthExpr("t.date") + ` = ?`
		args = append(args, month)
	}
	query += ` ORDER BY t.date DESC, t.id DESC`

	return s.listTransactions(ctx, query, args...)
}

// ListRecurringTransactions returns every entry that carries a cadence,
// newest first, for the recurring materializer.
func (s *Store) ListRecurringTransactions(ctx context.Context) ([]TransactionRow, error) {
	query := s.transactionSelect() +
		` WHERE t.is_recurring = ? ORDER BY t.date DESC, t.id DESC`

	return s.listTransactions(ctx, query, true)
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...any) ([]TransactionRow, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]TransactionRow, 0)
	for rows.Next() {
		row, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpdateTransaction applies a partial update. SET fragments are appended in
// a fixed field order with their parameters in the same index space, the
// same arena pattern the filter builder uses.
func (s *Store) UpdateTransaction(ctx context.Context, id int64, p TransactionPatch) (TransactionRow, error) {
	if p.Empty() {
		return TransactionRow{}, core.ErrNoFieldsToUpdate
	}

	var (
		sets []string
		args []any
	)
	set := func(frag string, arg any) {
		sets = append(sets, frag)
		args = append(args, arg)
	}

	if p.Type != nil {
		set("type = ?", *p.Type)
	}
	if p.Category != nil {
		set("category = ?", *p.Category)
	}
	if p.Amount != nil {
		set("amount_cents = ?", p.Amount.Cents)
	}
	if p.Description != nil {
		set("description = ?", *p.Description)
	}
	if p.Date != nil {
		set("date = "+s.dialect.DateParam(), *p.Date)
	}
	if p.Member != nil {
		set("member = ?", *p.Member)
	}
	if p.HasTags {
		tags, err := json.Marshal(core.CleanTags(p.Tags))
		if err != nil {
			return TransactionRow{}, fmt.Errorf("encode tags: %w", err)
		}
		set("tags = ?", string(tags))
	}
	if p.HasAccount {
		set("account_id = ?", p.AccountID)
	}
	if p.HasRecurs {
		var recurrence *string
		if p.SetRecurs != nil {
			v := string(*p.SetRecurs)
			recurrence = &v
		}
		set("is_recurring = ?", p.SetRecurs != nil)
		set("recurrence = ?", recurrence)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.exec(ctx, `UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if err := rowsAffected(res); err != nil {
		return TransactionRow{}, err
	}
	return s.GetTransaction(ctx, id)
}

// DeleteTransaction removes one entry, ErrNotFound when absent.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return rowsAffected(res)
}
