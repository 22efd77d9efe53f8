package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"service-dashboard/models"
)

// GetIconResult returns the cached probe outcome for url, or nil if there is none
func (db *DB) GetIconResult(ctx context.Context, url string) (*models.IconResult, error) {
	var result models.IconResult
	var checkedAt int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT url, ok, checked_at
		FROM icon_cache
		WHERE url = $1
	`, url).Scan(&result.URL, &result.OK, &checkedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read icon result: %w", err)
	}

	result.CheckedAt = time.Unix(checkedAt, 0).UTC()
	return &result, nil
}

// SaveIconResult stores or replaces the probe outcome for an icon URL
func (db *DB) SaveIconResult(ctx context.Context, result models.IconResult) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO icon_cache (url, ok, checked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE SET ok = excluded.ok, checked_at = excluded.checked_at
	`, result.URL, result.OK, result.CheckedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save icon result: %w", err)
	}
	return nil
}

// SaveStatus stores the latest status of a service
func (db *DB) SaveStatus(ctx context.Context, st models.Status) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO service_status (name, url, category, up, status_code, last_error, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			category = excluded.category,
			up = excluded.up,
			status_code = excluded.status_code,
			last_error = excluded.last_error,
			checked_at = excluded.checked_at
	`, st.Name, st.URL, st.Category, st.Up, st.StatusCode, st.Error, st.CheckedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save status for %s: %w", st.Name, err)
	}
	return nil
}

// GetStatus returns the latest status of a service, or nil if it was never checked
func (db *DB) GetStatus(ctx context.Context, name string) (*models.Status, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT name, url, category, up, status_code, last_error, checked_at
		FROM service_status
		WHERE name = $1
	`, name)

	st, err := scanStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status for %s: %w", name, err)
	}
	return st, nil
}

// ListStatuses returns the latest status of every checked service ordered by name
func (db *DB) ListStatuses(ctx context.Context) ([]models.Status, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, url, category, up, status_code, last_error, checked_at
		FROM service_status
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statuses: %w", err)
	}
	return statuses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatus(s scanner) (*models.Status, error) {
	var st models.Status
	var checkedAt int64
	if err := s.Scan(&st.Name, &st.URL, &st.Category, &st.Up, &st.StatusCode, &st.Error, &checkedAt); err != nil {
		return nil, err
	}
	st.CheckedAt = time.Unix(checkedAt, 0).UTC()
	return &st, nil
}
