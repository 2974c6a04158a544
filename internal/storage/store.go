// Package storage persists the ledger in a relational store. It speaks two
// dialects, SQLite (modernc, default) and Postgres (pgx), behind a single
// Store; every query is written once with `?` placeholders and rebound per
// dialect at execution time.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound reports that an id-addressed lookup, update or delete matched
// zero rows. Callers distinguish it from validation failures.
var ErrNotFound = errors.New("not found")

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured backend and applies pending migrations.
// dsn is a file path for SQLite and a connection URL for Postgres.
func Open(dialect Dialect, dsn string) (*Store, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("unsupported db driver: %s", dialect)
	}

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case SQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		db, err = sql.Open("sqlite", dsn)
	case Postgres:
		db, err = sql.Open("pgx", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports backend reachability, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// insertID runs an INSERT and returns the generated id, using RETURNING on
// Postgres and LastInsertId on SQLite.
func (s *Store) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if s.dialect == Postgres {
		var id int64
		err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// rowsAffected maps a zero-row UPDATE/DELETE onto ErrNotFound.
func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
