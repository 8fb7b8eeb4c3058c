package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/dbx"
)

// dialect carries the statements that differ between SQLite and Postgres.
type dialect struct {
	get    string
	upsert string
	del    string
	list   string
	clear  string
	usage  string
}

var sqliteDialect = dialect{
	get: `SELECT value FROM kv WHERE key = ?`,
	upsert: `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CAST(strftime('%s','now') AS INTEGER))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	del:   `DELETE FROM kv WHERE key = ?`,
	list:  `SELECT key, value FROM kv`,
	clear: `DELETE FROM kv`,
	usage: `SELECT COALESCE(SUM(length(value)), 0) FROM kv WHERE key <> ?`,
}

var postgresDialect = dialect{
	get: `SELECT value FROM kv WHERE key = $1`,
	upsert: `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	del:   `DELETE FROM kv WHERE key = $1`,
	list:  `SELECT key, value FROM kv`,
	clear: `DELETE FROM kv`,
	usage: `SELECT COALESCE(SUM(octet_length(value)), 0) FROM kv WHERE key <> $1`,
}

// sqlRepository implements Repository and QuotaSetter over database/sql.
type sqlRepository struct {
	db *sql.DB
	d  dialect
}

func (r *sqlRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return r.get(ctx, r.db, key)
}

func (r *sqlRepository) get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, r.d.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (r *sqlRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.set(ctx, r.db, key, value)
}

func (r *sqlRepository) set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := q.ExecContext(ctx, r.d.upsert, key, value); err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (r *sqlRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, r.d.del, key); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (r *sqlRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.d.clear); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

func (r *sqlRepository) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, r.d.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return result, nil
}

// SetWithinQuota sums the sizes of all other values and writes only when the
// new total stays within limit. Both steps share one transaction.
func (r *sqlRepository) SetWithinQuota(ctx context.Context, key string, value []byte, limit int64) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var used int64
		if err := tx.QueryRowContext(ctx, r.d.usage, key).Scan(&used); err != nil {
			return fmt.Errorf("failed to compute kv usage: %w", err)
		}
		if used+int64(len(value)) > limit {
			return fmt.Errorf("kv[%s]: %d bytes with %d in use over %d: %w",
				key, len(value), used, limit, common.ErrQuotaExceeded)
		}
		return r.set(ctx, tx, key, value)
	})
}

// Close releases the underlying database.
func (r *sqlRepository) Close() error {
	return r.db.Close()
}
