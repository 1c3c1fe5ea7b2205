// Package db opens the Postgres connection pool and embeds the schema migrations.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes Open. Zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// ConnectTimeout bounds the total time spent retrying the first ping.
	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 10 * time.Second

// Open parses dsn, builds a pgxpool and pings it, retrying with exponential backoff
// while Postgres comes up. Parse errors fail immediately. Caller must Close the pool.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("db: new pool: %w", err)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = timeout
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}
