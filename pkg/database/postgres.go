package database

import (
	"context"
	"fmt"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cfg "github.com/sand/crypto-wallet-admin/backend/config"
)

const defaultConnectTimeout = 5 * time.Second

// Postgres wraps the connection pool together with the transactor used to
// run multi-statement units of work. Repositories receive DBGetter so that
// queries issued inside WithinTransaction join the surrounding transaction.
type Postgres struct {
	Pool       *pgxpool.Pool
	DBGetter   tx.DBGetter
	Transactor *tx.Transactor
}

// Option configures the pool before it is created.
type Option func(*pgxpool.Config)

// MaxPoolSize sets the maximum number of connections in the pool.
func MaxPoolSize(size int32) Option {
	return func(c *pgxpool.Config) {
		if size > 0 {
			c.MaxConns = size
		}
	}
}

// ConnTimeout sets the connection timeout in seconds.
func ConnTimeout(seconds int) Option {
	return func(c *pgxpool.Config) {
		if seconds > 0 {
			c.ConnConfig.ConnectTimeout = time.Duration(seconds) * time.Second
		}
	}
}

// HealthCheckPeriod sets the pool health check period in minutes.
func HealthCheckPeriod(minutes int) Option {
	return func(c *pgxpool.Config) {
		if minutes > 0 {
			c.HealthCheckPeriod = time.Duration(minutes) * time.Minute
		}
	}
}

// Isolation sets the default transaction isolation level for every
// connection in the pool. Wallet balance updates additionally take row
// locks, so ReadCommitted is sufficient here.
func Isolation(level pgxv5.TxIsoLevel) Option {
	return func(c *pgxpool.Config) {
		c.ConnConfig.RuntimeParams["default_transaction_isolation"] = string(level)
	}
}

// New connects to Postgres and prepares the transactor.
func New(config *cfg.Config, opts ...Option) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DB.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout
	for _, opt := range opts {
		opt(poolConfig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), poolConfig.ConnConfig.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	transactor, dbGetter := tx.NewTransactorFromPool(pool)

	return &Postgres{
		Pool:       pool,
		DBGetter:   dbGetter,
		Transactor: transactor,
	}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
