package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Alimentacao Category = "alimentacao"
	Transporte  Category = "transporte"
	Lazer       Category = "lazer"
	Saude       Category = "saude"
	Educacao    Category = "educacao"
	Moradia     Category = "moradia"
	Salario     Category = "salario"
	Outros      Category = "outros"
)

const (
	MemberEu      Member = "Eu"
	MemberConjuge Member = "Cônjuge"
	MemberFilho   Member = "Filho(a)"
	MemberOutro   Member = "Outro"
)

const (
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Yearly  Recurrence = "yearly"
)

const (
	DefaultAccountIcon  = "💳"
	DefaultAccountColor = "#1e2a5e"
)

type (
	TransactionType string
	Category        string
	Member          string
	Recurrence      string

	// Transaction is one ledger entry. Recurs is nil for one-off entries;
	// a non-nil value both marks the entry as recurring and carries the
	// cadence, so the recurring/cadence pairing cannot get out of sync.
	Transaction struct {
		ID          int64
		Type        TransactionType
		Category    Category
		Description string
		Amount      Money
		Date        Date
		Member      Member
		Tags        []string
		AccountID   *int64
		Recurs      *Recurrence
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Account struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon"`
		Color     string    `json:"color"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Goal caps monthly spending for one category. Category is the natural
	// unique key; writing a goal for an existing category overwrites the limit.
	Goal struct {
		ID           int64     `json:"id"`
		Category     Category  `json:"category"`
		MonthlyLimit Money     `json:"monthly_limit"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	// Budget is an overall cap for one calendar month, independent of goals.
	Budget struct {
		ID         int64     `json:"id"`
		Month      Month     `json:"month"`
		TotalLimit Money     `json:"total_limit"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	Alert struct {
		ID        int64           `json:"id"`
		Type      string          `json:"type"`
		Message   string          `json:"message"`
		Data      json.RawMessage `json:"data"`
		Read      bool            `json:"read"`
		CreatedAt time.Time       `json:"created_at"`
	}
)

// ValidationError rejects caller input with a human-readable reason.
// It is never a server fault: handlers report it as a 400, not a 500.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

var (
	ErrInvalidType       = ValidationError{"type deve ser: income, expense"}
	ErrInvalidCategory   = ValidationError{"category deve ser: alimentacao, transporte, lazer, saude, educacao, moradia, salario, outros"}
	ErrInvalidMember     = ValidationError{"member inválido"}
	ErrInvalidAmount     = ValidationError{"amount deve ser um número positivo"}
	ErrInvalidDate       = ValidationError{"date deve ser YYYY-MM-DD"}
	ErrInvalidMonth      = ValidationError{"month deve ser YYYY-MM"}
	ErrInvalidRecurrence = ValidationError{"recurrence deve ser: weekly, monthly, yearly"}
	ErrInvalidLimit      = ValidationError{"monthly_limit deve ser um número positivo"}
	ErrInvalidTotalLimit = ValidationError{"total_limit deve ser positivo"}
	ErrEmptyName         = ValidationError{"name é obrigatório"}
	ErrNoFieldsToUpdate  = ValidationError{"Nenhum campo para atualizar"}
	ErrMissingID         = ValidationError{"id é obrigatório"}
	ErrEmptyMessage      = ValidationError{"message é obrigatório"}
	ErrEmptyTransactions = ValidationError{"transactions deve ser um array não vazio"}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Category) Valid() bool {
	switch c {
	case Alimentacao, Transporte, Lazer, Saude, Educacao, Moradia, Salario, Outros:
		return true
	}
	return false
}

// Categories lists every legal category in declaration order.
func Categories() []Category {
	return []Category{Alimentacao, Transporte, Lazer, Saude, Educacao, Moradia, Salario, Outros}
}

func (m Member) Valid() bool {
	switch m {
	case MemberEu, MemberConjuge, MemberFilho, MemberOutro:
		return true
	}
	return false
}

func (r Recurrence) Valid() bool {
	switch r {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// IsRecurring reports whether the transaction repeats.
func (t Transaction) IsRecurring() bool {
	return t.Recurs != nil
}

// Validate enforces the required-field invariants for a new transaction.
// Optional fields are normalized by NormalizeTransaction, not rejected here.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date != "" {
		if err := t.Date.Validate(); err != nil {
			return err
		}
	}
	if t.Member != "" && !t.Member.Valid() {
		return ErrInvalidMember
	}
	if t.Recurs != nil && !t.Recurs.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

// NormalizeTransaction fills defaults and cleans optional fields in place:
// today's date when absent, member falling back to "Eu" when absent or
// outside the closed set, tags trimmed with empties dropped, and an invalid
// cadence cleared. Malformed optional values are dropped rather than
// rejected, mirroring the filter policy for optional inputs.
func NormalizeTransaction(t *Transaction) {
	if t.Date == "" {
		t.Date = Today()
	}
	if !t.Member.Valid() {
		t.Member = MemberEu
	}
	t.Tags = CleanTags(t.Tags)
	if t.Recurs != nil && !t.Recurs.Valid() {
		t.Recurs = nil
	}
}

// CleanTags trims every tag and drops empties, preserving order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if v := strings.TrimSpace(tag); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (g Goal) Validate() error {
	if !g.Category.Valid() {
		return ErrInvalidCategory
	}
	if g.MonthlyLimit.Cents <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.TotalLimit.Cents <= 0 {
		return ErrInvalidTotalLimit
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
