package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const defaultKeyValueTable = "kv_entries"

type postgresKeyValueStore struct {
	db    *sql.DB
	table string
}

// NewPostgresKeyValueStore builds a key-value store backed by PostgreSQL.
// table defaults to kv_entries when empty.
func NewPostgresKeyValueStore(db *sql.DB, table string) (KeyValueStore, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultKeyValueTable
	}
	repo := &postgresKeyValueStore{db: db, table: pq.QuoteIdentifier(table)}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresKeyValueStore) ensureSchema() error {
	createTable := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            key TEXT PRIMARY KEY,
            value BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`, r.table)
	if _, err := r.db.Exec(createTable); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

func (r *postgresKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, r.table)
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		return nil, r.mapError(err)
	}
	return value, nil
}

func (r *postgresKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key)
        DO UPDATE SET value = EXCLUDED.value,
                      updated_at = EXCLUDED.updated_at`, r.table)
	_, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	return r.mapError(err)
}

func (r *postgresKeyValueStore) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrKeyNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 42P01 undefined_table: schema was dropped behind our back.
		if pqErr.Code == "42P01" {
			return fmt.Errorf("key-value table %s missing: %w", r.table, err)
		}
	}
	return err
}
