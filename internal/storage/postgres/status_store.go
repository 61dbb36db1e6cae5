// Package postgres provides a Postgres-backed status store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for stock state rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// StatusStore keeps one row per product in a Postgres table.
type StatusStore struct {
	pool  pool
	table string
}

// New connects to Postgres, ensures the table exists and returns the store.
func New(ctx context.Context, cfg Config) (*StatusStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*StatusStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "stock_status"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &StatusStore{pool: p, table: table}, nil
}

// EnsureSchema creates the state table when it does not exist.
func (s *StatusStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	product_id TEXT PRIMARY KEY,
	available BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *StatusStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load reads every row into a StockState. An empty table yields an empty state.
func (s *StatusStore) Load(ctx context.Context) (monitor.StockState, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT product_id, available FROM %s", s.table))
	if err != nil {
		return nil, fmt.Errorf("select stock state: %w", err)
	}
	defer rows.Close()

	state := monitor.StockState{}
	for rows.Next() {
		var (
			id        string
			available bool
		)
		if err := rows.Scan(&id, &available); err != nil {
			return nil, fmt.Errorf("scan stock state: %w", err)
		}
		state[id] = available
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock state: %w", err)
	}
	return state, nil
}

// Save replaces the table contents inside a single transaction.
func (s *StatusStore) Save(ctx context.Context, state monitor.StockState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := s.replace(ctx, tx, state); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stock state: %w", err)
	}
	return nil
}

func (s *StatusStore) replace(ctx context.Context, tx pgx.Tx, state monitor.StockState) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("clear stock state: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (product_id, available, updated_at) VALUES ($1, $2, now())", s.table)
	for _, id := range state.IDs() {
		if _, err := tx.Exec(ctx, insert, id, state[id]); err != nil {
			return fmt.Errorf("insert stock state %q: %w", id, err)
		}
	}
	return nil
}
