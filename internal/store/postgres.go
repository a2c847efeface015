package store

import (
	"context"
	"fmt"

	"progenai/internal/infra"
	"progenai/internal/sqlinline"
)

// PGStore keeps values in a single postgres table, one row per key.
type PGStore struct {
	sql infra.SQLExecutor
}

func NewPGStore(sql infra.SQLExecutor) *PGStore {
	return &PGStore{sql: sql}
}

// EnsureSchema creates the backing table when it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QCreateKVTable); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var raw string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectKV, key).Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: select %s: %w", key, err)
	}
	return []byte(raw), true, nil
}

func (s *PGStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertKV, key, string(value)); err != nil {
		return fmt.Errorf("store: upsert %s: %w", key, err)
	}
	return nil
}

var _ KV = (*PGStore)(nil)
