package storage

import (
	"regexp"
	"strconv"
	"strings"

	"bolso/internal/core"
)

const (
	// DefaultLimit applies when the caller sends no page size.
	DefaultLimit = 200
	// MaxLimit is the hard page-size ceiling.
	MaxLimit = 1000
)

var (
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	idRe    = regexp.MustCompile(`^\d+$`)
)

// TransactionFilter is the raw, optional filter set for listing transactions.
// Every field is independent; values arrive untrusted from the query string.
type TransactionFilter struct {
	Type      string
	Category  string
	Month     string
	From      string
	To        string
	Search    string
	Member    string
	Tag       string
	AccountID string
	Sort      string
	Limit     int
	Offset    int
}

// whereClause is the outcome of filter compilation: predicates and their
// bound parameters share one index space, so predicate i always binds
// parameter i and the generated positions are deterministic.
type whereClause struct {
	preds []string
	args  []any
}

func (w *whereClause) add(pred string, arg any) {
	w.preds = append(w.preds, pred)
	w.args = append(w.args, arg)
}

// SQL renders the clause, empty when no filter matched.
func (w *whereClause) SQL() string {
	if len(w.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.preds, " AND ")
}

// buildTransactionWhere compiles the filter into an ordered predicate list.
// Fields are visited in a fixed order (type, category, month, from, to,
// search, member, tag, account_id); a field that is absent or fails its own
// validity check contributes nothing; malformed optional filters are
// skipped, never an error. Only values reach the parameter list; predicate
// text is built exclusively from this package's own fragments.
func buildTransactionWhere(f TransactionFilter, d Dialect) whereClause {
	var w whereClause

	if t := core.TransactionType(f.Type); f.Type != "" && t.Valid() {
		w.add("t.type = ?", f.Type)
	}
	if c := core.Category(f.Category); f.Category != "" && c.Valid() {
		w.add("t.category = ?", f.Category)
	}
	if monthRe.MatchString(f.Month) {
		w.add(d.MonthExpr("t.date")+" = ?", f.Month)
	}
	if dateRe.MatchString(f.From) {
		w.add("t.date >= "+d.DateParam(), f.From)
	}
	if dateRe.MatchString(f.To) {
		w.add("t.date <= "+d.DateParam(), f.To)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add(d.SearchPredicate("t.description"), "%"+s+"%")
	}
	if m := core.Member(f.Member); f.Member != "" && m.Valid() {
		w.add("t.member = ?", f.Member)
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		w.add(d.TagPredicate("t.tags"), tag)
	}
	if idRe.MatchString(f.AccountID) {
		id, err := strconv.ParseInt(f.AccountID, 10, 64)
		if err == nil {
			w.add("t.account_id = ?", id)
		}
	}

	return w
}

// EffectiveLimit clamps the page size to [1, MaxLimit], defaulting to
// DefaultLimit when unset or non-positive.
func (f TransactionFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	if f.Limit > MaxLimit {
		return MaxLimit
	}
	return f.Limit
}

// EffectiveOffset floors the offset at zero.
func (f TransactionFilter) EffectiveOffset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// OrderDir resolves the sort direction, descending unless "asc" was asked for.
func (f TransactionFilter) OrderDir() string {
	if f.Sort == "asc" {
		return "ASC"
	}
	return "DESC"
}
