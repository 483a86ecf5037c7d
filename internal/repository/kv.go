package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getEntrySQL = `SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`

	setEntrySQL = `
INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	removeEntrySQL = `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`
)

// KVStore is a durable string key-value store scoped to one namespace.
type KVStore struct {
	db        *pgxpool.Pool
	namespace string
}

func NewKVStore(db *pgxpool.Pool, namespace string) *KVStore {
	return &KVStore{db: db, namespace: namespace}
}

func (s *KVStore) Namespace() string {
	return s.namespace
}

// Get returns ok=false when the key was never set or has been removed.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, getEntrySQL, s.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.Exec(ctx, setEntrySQL, s.namespace, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove is a no-op for missing keys.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, removeEntrySQL, s.namespace, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
