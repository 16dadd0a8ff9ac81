package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"shoppingmart/internal/config"
	"shoppingmart/internal/logger"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateSKU      = errors.New("duplicate sku")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Postgres SQLSTATE codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so the same query
// functions run on a pinned connection or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB owns the connection pool. Open it once at process start, pass it to the
// components that need it and Close it at shutdown.
type DB struct {
	sql *sql.DB
}

// Open connects to Postgres and configures the pool.
func Open(ctx context.Context, databaseURL string, cfg config.DBConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err = sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	logger.Info("database connection established", map[string]interface{}{
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})
	return &DB{sql: sqlDB}, nil
}

// New wraps an already opened pool.
func New(sqlDB *sql.DB) *DB {
	return &DB{sql: sqlDB}
}

// Close drains the pool.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// WithConn runs fn on one pooled connection and releases it on every exit
// path, including a panic inside fn.
func (d *DB) WithConn(ctx context.Context, fn func(q Querier) error) error {
	conn, err := d.sql.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// WithTx runs fn inside a transaction. It commits only when fn returns nil;
// on error or panic the transaction is rolled back and the original error
// (or panic) propagates.
func (d *DB) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		rollback(tx)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error("failed to roll back transaction", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// classify maps driver constraint errors onto the package sentinels. Only
// violations of the product SKU and category constraints have a sentinel;
// any other constraint failure is returned wrapped as is.
func classify(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		constraint := strings.ToLower(pqErr.Constraint)
		switch {
		case string(pqErr.Code) == codeUniqueViolation && strings.Contains(constraint, "sku"):
			return fmt.Errorf("failed to %s: %w: %s", action, ErrDuplicateSKU, pqErr.Constraint)
		case string(pqErr.Code) == codeForeignKeyViolation && strings.Contains(constraint, "category"):
			return fmt.Errorf("failed to %s: %w: %s", action, ErrInvalidReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
