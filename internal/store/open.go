package store

import (
	"context"
	"fmt"

	"progenai/internal/infra"
)

// Open builds the backend selected by cfg.StoreBackend. The returned close
// func releases any pool and is always safe to call.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (KV, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case infra.StoreBackendMemory:
		return NewMemoryStore(), noop, nil
	case infra.StoreBackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		pg := NewPGStore(infra.NewSQLRunner(pool, logger.With().Str("component", "store").Logger()))
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return pg, pool.Close, nil
	case infra.StoreBackendFile, "":
		fs, err := NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	default:
		return nil, noop, fmt.Errorf("store: unsupported backend %q", cfg.StoreBackend)
	}
}
