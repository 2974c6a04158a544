package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// goalWatcher is what the transaction service needs from alerting: a fire
// and forget check after every durable expense write.
type goalWatcher interface {
	EvaluateGoalAfterExpense(ctx context.Context, category core.Category, month core.Month)
}

// TransactionService owns the write path of the ledger and the export
// surface. Expense writes feed the goal watcher after commit.
type TransactionService struct {
	store   TransactionStore
	watcher goalWatcher
	logger  *log.Logger
}

func NewTransactionService(store TransactionStore, watcher goalWatcher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:   store,
		watcher: watcher,
		logger:  logger.WithComponent(log.ComponentTransactions),
	}
}

// TransactionInput is the wire shape of a new ledger entry. Amount accepts
// a JSON number or a decimal string.
type TransactionInput struct {
	Type        core.TransactionType `json:"type"`
	Category    core.Category        `json:"category"`
	Description string               `json:"description"`
	Desc        string               `json:"desc"`
	Amount      core.Money           `json:"amount"`
	Date        core.Date            `json:"date"`
	Member      core.Member          `json:"member"`
	Tags        []string             `json:"tags"`
	AccountID   *int64               `json:"account_id"`
	IsRecurring bool                 `json:"is_recurring"`
	Recurrence  core.Recurrence      `json:"recurrence"`
}

// transaction folds the input into a domain value. is_recurring without a
// cadence, or a cadence without is_recurring, both collapse to one-off.
func (in TransactionInput) transaction() core.Transaction {
	desc := in.Description
	if desc == "" {
		desc = in.Desc
	}
	t := core.Transaction{
		Type:        in.Type,
		Category:    in.Category,
		Description: desc,
		Amount:      in.Amount,
		Date:        in.Date,
		Member:      in.Member,
		Tags:        in.Tags,
		AccountID:   in.AccountID,
	}
	if in.IsRecurring && in.Recurrence != "" {
		r := in.Recurrence
		t.Recurs = &r
	}
	return t
}

// Create validates, persists and returns the new entry. An expense kicks
// off goal evaluation for its category and month after the write.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (storage.TransactionRow, error) {
	t := in.transaction()
	core.NormalizeTransaction(&t)
	if err := t.Validate(); err != nil {
		return storage.TransactionRow{}, err
	}

	row, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return storage.TransactionRow{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldTransactionID, row.ID,
		log.FieldCategory, row.Category,
		log.FieldAmountCents, row.Amount.Cents)

	if row.Type == core.Expense && s.watcher != nil {
		s.watcher.EvaluateGoalAfterExpense(ctx, row.Category, row.Date.Month())
	}
	return row, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (storage.TransactionRow, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	return nil
}

// TransactionUpdate is a partial update; absent fields stay untouched.
// AccountID is raw JSON so that an explicit null clears the link while an
// absent field leaves it alone.
type TransactionUpdate struct {
	Type        *core.TransactionType `json:"type"`
	Category    *core.Category        `json:"category"`
	Amount      *core.Money           `json:"amount"`
	Description *string               `json:"description"`
	Date        *core.Date            `json:"date"`
	Member      *core.Member          `json:"member"`
	Tags        []string              `json:"tags"`
	AccountID   json.RawMessage       `json:"account_id"`
	IsRecurring *bool                 `json:"is_recurring"`
	Recurrence  *core.Recurrence      `json:"recurrence"`
}

// patch validates the present fields and compiles them into a storage patch.
// Unlike create, explicitly sent values must be legal; nothing falls back.
func (u TransactionUpdate) patch() (storage.TransactionPatch, error) {
	var p storage.TransactionPatch

	if u.Type != nil {
		if !u.Type.Valid() {
			return p, core.ErrInvalidType
		}
		p.Type = u.Type
	}
	if u.Category != nil {
		if !u.Category.Valid() {
			return p, core.ErrInvalidCategory
		}
		p.Category = u.Category
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return p, err
		}
		p.Amount = u.Amount
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	if u.Date != nil {
		if err := u.Date.Validate(); err != nil {
			return p, err
		}
		p.Date = u.Date
	}
	if u.Member != nil {
		if !u.Member.Valid() {
			return p, core.ErrInvalidMember
		}
		p.Member = u.Member
	}
	if u.Tags != nil {
		p.Tags = u.Tags
		p.HasTags = true
	}
	if len(u.AccountID) > 0 {
		p.HasAccount = true
		if string(u.AccountID) != "null" {
			id, err := strconv.ParseInt(strings.Trim(string(u.AccountID), `"`), 10, 64)
			if err != nil {
				return p, core.ValidationError{Reason: "account_id inválido"}
			}
			p.AccountID = &id
		}
	}
	if u.IsRecurring != nil || u.Recurrence != nil {
		p.HasRecurs = true
		recurring := u.IsRecurring == nil || *u.IsRecurring
		if recurring {
			// The flag alone cannot make a row recurring; it would
			// leave the cadence undefined (or wipe a stored one).
			if u.Recurrence == nil || !u.Recurrence.Valid() {
				return p, core.ErrInvalidRecurrence
			}
			p.SetRecurs = u.Recurrence
		}
	}

	return p, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, u TransactionUpdate) (storage.TransactionRow, error) {
	p, err := u.patch()
	if err != nil {
		return storage.TransactionRow{}, err
	}
	row, err := s.store.UpdateTransaction(ctx, id, p)
	if err != nil {
		return storage.TransactionRow{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated", log.FieldTransactionID, id)
	return row, nil
}

// ImportError records one rejected row with its position and original data.
type ImportError struct {
	Index int             `json:"index"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// ImportResult is the outcome of a bulk import.
type ImportResult struct {
	Imported     int                      `json:"imported"`
	Errors       []ImportError            `json:"errors"`
	Transactions []storage.TransactionRow `json:"transactions"`
}

// Import persists a batch of rows, tolerating partial failure. An unknown
// type falls back to expense and an unknown category to outros; only an
// unusable amount, an undecodable row or a storage failure rejects a row.
// accountID, when set, applies to rows that carry none of their own.
func (s *TransactionService) Import(ctx context.Context, rows []json.RawMessage, accountID *int64) (ImportResult, error) {
	if len(rows) == 0 {
		return ImportResult{}, core.ErrEmptyTransactions
	}

	result := ImportResult{
		Errors:       make([]ImportError, 0),
		Transactions: make([]storage.TransactionRow, 0, len(rows)),
	}
	fail := func(i int, msg string) {
		result.Errors = append(result.Errors, ImportError{Index: i, Error: msg, Data: rows[i]})
	}

	for i, raw := range rows {
		var in TransactionInput
		if err := json.Unmarshal(raw, &in); err != nil {
			// A malformed amount surfaces here as a validation error from
			// Money's unmarshaler; keep its message.
			if core.IsValidation(err) {
				fail(i, err.Error())
			} else {
				fail(i, "linha inválida")
			}
			continue
		}

		t := in.transaction()
		if !t.Type.Valid() {
			t.Type = core.Expense
		}
		if !t.Category.Valid() {
			t.Category = core.Outros
		}
		if t.AccountID == nil {
			t.AccountID = accountID
		}
		core.NormalizeTransaction(&t)

		if err := t.Validate(); err != nil {
			if core.IsValidation(err) {
				fail(i, err.Error())
			} else {
				fail(i, "amount inválido")
			}
			continue
		}

		row, err := s.store.CreateTransaction(ctx, t)
		if err != nil {
			s.logger.ErrorContext(ctx, "Import row failed",
				log.FieldOperation, log.OpImport, log.FieldError, err)
			fail(i, "falha ao salvar")
			continue
		}
		result.Imported++
		result.Transactions = append(result.Transactions, row)
	}

	s.logger.InfoContext(ctx, "Import finished",
		log.FieldRowCount, len(rows),
		"imported", result.Imported,
		"failed", len(result.Errors))
	return result, nil
}

// Export lists every entry, optionally restricted to one month.
func (s *TransactionService) Export(ctx context.Context, month string) ([]storage.TransactionRow, error) {
	return s.store.ExportTransactions(ctx, month)
}

var csvHeader = []string{
	"ID", "Tipo", "Categoria", "Descrição", "Valor", "Data",
	"Membro", "Tags", "Conta", "Recorrente", "Recorrência",
}

// WriteCSV renders rows as a spreadsheet-friendly CSV: UTF-8 BOM for Excel,
// localized header, tags joined with semicolons.
func WriteCSV(w io.Writer, rows []storage.TransactionRow) error {
	if _, err := w.Write([]byte("\uFEFF")); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		account := ""
		if r.AccountName != nil {
			account = *r.AccountName
		}
		recurring, cadence := "Não", ""
		if r.Recurs != nil {
			recurring, cadence = "Sim", string(*r.Recurs)
		}
		record := []string{
			strconv.FormatInt(r.ID, 10),
			string(r.Type),
			string(r.Category),
			r.Description,
			r.Amount.String(),
			string(r.Date),
			string(r.Member),
			strings.Join(r.Tags, ";"),
			account,
			recurring,
			cadence,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the download attachment.
func ExportFilename(month, ext string) string {
	if month != "" {
		return fmt.Sprintf("transacoes_%s.%s", month, ext)
	}
	return "transacoes." + ext
}
