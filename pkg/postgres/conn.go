package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	URL            string `env:"URL"`
	MigrationsPath string `env:"MIGRATIONS_PATH, default=file://./migrations"`
	MaxConns       int32  `env:"MAX_CONNS, default=10"`
}

func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pgcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	if cfg.MaxConns > 0 {
		pgcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgcfg)
	if err != nil {
		return nil, fmt.Errorf("new pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}
