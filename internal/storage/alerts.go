package storage

import (
	"context"
	"database/sql"
	"fmt"

	"bolso/internal/core"
)

const alertListCap = 50

func scanAlert(scan func(dest ...any) error) (core.Alert, error) {
	var (
		a       core.Alert
		data    sql.NullString
		created sql.NullTime
	)
	if err := scan(&a.ID, &a.Type, &a.Message, &data, &a.Read, &created); err != nil {
		return core.Alert{}, err
	}
	if data.Valid {
		a.Data = []byte(data.String)
	}
	a.CreatedAt = created.Time
	return a, nil
}

// InsertAlert stores a new unread alert. Data is an optional JSON payload
// carried through verbatim.
func (s *Store) InsertAlert(ctx context.Context, typ, message string, data []byte) (core.Alert, error) {
	var payload any
	if len(data) > 0 {
		payload = string(data)
	}
	id, err := s.insertID(ctx, `INSERT INTO alerts (type, message, data) VALUES (?, ?, ?)`, typ, message, payload)
	if err != nil {
		return core.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return s.GetAlert(ctx, id)
}

func (s *Store) GetAlert(ctx context.Context, id int64) (core.Alert, error) {
	a, err := scanAlert(s.queryRow(ctx, `SELECT id, type, message, data, read, created_at
		FROM alerts WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return core.Alert{}, ErrNotFound
	}
	if err != nil {
		return core.Alert{}, fmt.Errorf("get alert %d: %w", id, err)
	}
	return a, nil
}

// ListAlerts returns the most recent alerts, unread first, capped at 50.
func (s *Store) ListAlerts(ctx context.Context) ([]core.Alert, error) {
	rows, err := s.query(ctx, fmt.Sprintf(`SELECT id, type, message, data, read, created_at
		FROM alerts ORDER BY read ASC, created_at DESC LIMIT %d`, alertListCap))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestAlertByType fetches the newest alert of one type, ErrNotFound when
// none exists.
func (s *Store) LatestAlertByType(ctx context.Context, typ string) (core.Alert, error) {
	a, err := scanAlert(s.queryRow(ctx, `SELECT id, type, message, data, read, created_at
		FROM alerts WHERE type = ? ORDER BY created_at DESC LIMIT 1`, typ).Scan)
	if err == sql.ErrNoRows {
		return core.Alert{}, ErrNotFound
	}
	if err != nil {
		return core.Alert{}, fmt.Errorf("latest %s alert: %w", typ, err)
	}
	return a, nil
}

// MarkAlertRead flags one alert as read, ErrNotFound when the id is unknown.
func (s *Store) MarkAlertRead(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `UPDATE alerts SET read = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alert %d read: %w", id, err)
	}
	return rowsAffected(res)
}

// MarkAllAlertsRead flags every unread alert as read.
func (s *Store) MarkAllAlertsRead(ctx context.Context) error {
	if _, err := s.exec(ctx, `UPDATE alerts SET read = TRUE WHERE read = FALSE`); err != nil {
		return fmt.Errorf("mark alerts read: %w", err)
	}
	return nil
}
