package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Open creates the KV backend named by the store config and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		kv, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := kv.Migrate(ctx); err != nil {
			kv.Close() //nolint:errcheck
			return nil, err
		}
		zap.L().Debug("store: opened sqlite", zap.String("path", cfg.DatabaseURL))
		return kv, nil
	case "postgres":
		kv, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := kv.Migrate(ctx); err != nil {
			kv.Close() //nolint:errcheck
			return nil, err
		}
		return kv, nil
	case "redis":
		return NewRedis(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
