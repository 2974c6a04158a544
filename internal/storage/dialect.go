package storage

import (
	"strconv"
	"strings"
)

// Dialect captures the few places where the SQLite and Postgres backends
// disagree on SQL. Queries are written with `?` placeholders and rebound
// for Postgres at execution time, so parameter positions always match the
// order predicates were appended in.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) Valid() bool {
	return d == SQLite || d == Postgres
}

// Rebind rewrites `?` placeholders to `$1..$n` for Postgres. SQLite queries
// pass through untouched.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MonthExpr yields the YYYY-MM of a date column for equality against a month
// parameter. Dates are stored as ISO text in SQLite and as DATE in Postgres.
func (d Dialect) MonthExpr(col string) string {
	if d == Postgres {
		return "to_char(" + col + ", 'YYYY-MM')"
	}
	return "substr(" + col + ", 1, 7)"
}

// DateExpr yields the date column as ISO text in SELECT lists.
func (d Dialect) DateExpr(col string) string {
	if d == Postgres {
		return col + "::text"
	}
	return col
}

// DateParam yields the placeholder for binding an ISO date string.
func (d Dialect) DateParam() string {
	if d == Postgres {
		return "?::date"
	}
	return "?"
}

// SearchPredicate yields a case-insensitive substring match on a text column.
func (d Dialect) SearchPredicate(col string) string {
	if d == Postgres {
		return col + " ILIKE ?"
	}
	return col + " LIKE ?"
}

// TagPredicate yields a membership test against the JSON-encoded tags column.
func (d Dialect) TagPredicate(col string) string {
	if d == Postgres {
		return "jsonb_exists(" + col + "::jsonb, ?)"
	}
	return "EXISTS (SELECT 1 FROM json_each(" + col + ") WHERE json_each.value = ?)"
}
