package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assessio/assessio-backend/platform/go/metrics"
)

// PublicSchema is the shared schema holding the organization registry and the
// public migration ledger.
const PublicSchema = "public"

// txBeginner exposes the minimal pgx pool behaviour needed by TenantDB.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TenantDB executes units of work inside transactions whose search_path is
// pinned to exactly one tenant schema. The path is set transaction-locally,
// so commit and rollback both revert the connection to the default path
// before it returns to the shared pool; tenant context can never leak into a
// later checkout of the same connection.
type TenantDB struct {
	pool    txBeginner
	metrics *metrics.Collector
}

type TenantDBConfig struct {
	Pool    *pgxpool.Pool
	Metrics *metrics.Collector // optional; nil disables instrumentation
}

func NewTenantDB(cfg TenantDBConfig) *TenantDB {
	if cfg.Pool == nil {
		panic("TenantDB requires pool")
	}
	return &TenantDB{pool: cfg.Pool, metrics: cfg.Metrics}
}

// WithPublic executes fn inside a transaction pinned to the public schema.
// The pin is explicit rather than relying on the connection default, so the
// behaviour is identical whatever state a pooled connection is in.
func (db *TenantDB) WithPublic(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return db.run(ctx, PublicSchema, fn)
}

// WithTenant executes fn inside a transaction with search_path set to
// "<schemaName>, public". Tenant tables take precedence; shared public
// tables stay reachable without qualification. The schema name is validated
// before anything touches the database, the unit of work must never change
// the search_path itself, and any error it returns is propagated unchanged
// after rollback.
func (db *TenantDB) WithTenant(ctx context.Context, schemaName string, fn func(tx pgx.Tx) error) error {
	if err := ValidateSchemaName(schemaName); err != nil {
		return err
	}
	if schemaName == PublicSchema {
		return fmt.Errorf("%w: %q is not a tenant schema", ErrInvalidSchemaName, schemaName)
	}
	return db.run(ctx, schemaName+", "+PublicSchema, fn)
}

func (db *TenantDB) run(ctx context.Context, searchPath string, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	err := db.runTx(ctx, searchPath, fn)

	outcome := "commit"
	if err != nil {
		outcome = "rollback"
	}
	db.metrics.ObserveTenantTx(outcome, time.Since(start))

	return err
}

func (db *TenantDB) runTx(ctx context.Context, searchPath string, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return connectionError("begin tx", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// is_local=true scopes the setting to this transaction only.
	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, searchPath); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		// Unit-of-work errors pass through untouched so callers can branch
		// on their own error types after the rollback.
		return err
	}

	return tx.Commit(ctx)
}
