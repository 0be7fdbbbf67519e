package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// APIKey is a partner credential row.
type APIKey struct {
	Key        string    `json:"api_key"`
	Partner    string    `json:"partner"`
	IsActive   bool      `json:"is_active"`
	DailyLimit int       `json:"daily_limit"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateAPIKey inserts a new partner key. Each partner holds exactly one key.
func (d *Database) CreateAPIKey(ctx context.Context, key, partner string, dailyLimit int) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO api_keys (api_key, partner, daily_limit)
		VALUES (?, ?, ?)
	`, key, partner, dailyLimit)
	if err != nil {
		return fmt.Errorf("failed to create api key for %s: %w", partner, err)
	}
	return nil
}

// GetAPIKey loads a key row by its value. Nil result means unknown key.
func (d *Database) GetAPIKey(ctx context.Context, key string) (*APIKey, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT api_key, partner, is_active, daily_limit, created_at, updated_at
		FROM api_keys WHERE api_key = ?
	`, key)
	return scanAPIKey(row)
}

// GetAPIKeyByPartner loads a partner's key row. Nil result means no key.
func (d *Database) GetAPIKeyByPartner(ctx context.Context, partner string) (*APIKey, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT api_key, partner, is_active, daily_limit, created_at, updated_at
		FROM api_keys WHERE partner = ?
	`, partner)
	return scanAPIKey(row)
}

func scanAPIKey(row *sql.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.Key, &k.Partner, &k.IsActive, &k.DailyLimit, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}
	return &k, nil
}

// ListAPIKeys returns all partner keys.
func (d *Database) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT api_key, partner, is_active, daily_limit, created_at, updated_at
		FROM api_keys ORDER BY partner
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.Key, &k.Partner, &k.IsActive, &k.DailyLimit, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateAPIKey changes a partner's active flag and/or daily limit.
func (d *Database) UpdateAPIKey(ctx context.Context, partner string, isActive *bool, dailyLimit *int) error {
	if isActive == nil && dailyLimit == nil {
		return nil
	}
	query := "UPDATE api_keys SET "
	args := []interface{}{}
	if isActive != nil {
		query += "is_active = ?"
		args = append(args, *isActive)
	}
	if dailyLimit != nil {
		if len(args) > 0 {
			query += ", "
		}
		query += "daily_limit = ?"
		args = append(args, *dailyLimit)
	}
	query += " WHERE partner = ?"
	args = append(args, partner)

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update api key for %s: %w", partner, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceAPIKey swaps a partner's key value, for regeneration.
func (d *Database) ReplaceAPIKey(ctx context.Context, partner, newKey string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE api_keys SET api_key = ? WHERE partner = ?
	`, newKey, partner)
	if err != nil {
		return fmt.Errorf("failed to regenerate api key for %s: %w", partner, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAPIKey removes a partner's key.
func (d *Database) DeleteAPIKey(ctx context.Context, partner string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM api_keys WHERE partner = ?`, partner)
	if err != nil {
		return fmt.Errorf("failed to delete api key for %s: %w", partner, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActiveKeys reports how many keys are currently active.
func (d *Database) CountActiveKeys(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active api keys: %w", err)
	}
	return n, nil
}

// RecordUsage increments a partner's per-day per-endpoint request counter.
func (d *Database) RecordUsage(ctx context.Context, partner, endpoint string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO api_key_usage (partner, usage_date, endpoint, requests)
		VALUES (?, CURDATE(), ?, 1)
		ON DUPLICATE KEY UPDATE requests = requests + 1
	`, partner, endpoint)
	if err != nil {
		return fmt.Errorf("failed to record usage for %s: %w", partner, err)
	}
	return nil
}

// UsageToday sums a partner's requests across endpoints for today.
func (d *Database) UsageToday(ctx context.Context, partner string) (int, error) {
	var n sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT SUM(requests) FROM api_key_usage
		WHERE partner = ? AND usage_date = CURDATE()
	`, partner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage for %s: %w", partner, err)
	}
	return int(n.Int64), nil
}
