package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/assessio/assessio-backend/platform/go/metrics"
	"github.com/assessio/assessio-backend/platform/go/persistence"
)

// Ledger tables. The public ledger lives in the public schema; the tenant
// ledger is replicated once inside every tenant schema, so each tenant's
// migration version can lag or lead the rest of the fleet.
const (
	publicLedgerTable = "schema_migrations_public"
	tenantLedgerTable = "schema_migrations_tenant"
)

// ScopePublic labels public-schema runs in errors, logs and metrics; tenant
// runs are labelled with the schema name itself.
const ScopePublic = "public"

// MigrationError reports the exact script that failed. A failed script halts
// the run: migrations are order-dependent, so skipping ahead is never safe.
// Re-running after a failure requires operator intervention because the
// failed script's DDL may be half-applied outside transactional guarantees.
type MigrationError struct {
	Scope  string
	Script string
	Err    error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s failed in scope %s: %v", e.Script, e.Scope, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Runner applies versioned migration scripts to the public schema and to
// individual tenant schemas, recording each applied script in the matching
// ledger table. Concurrent runs against the same schema are not serialized
// here; deployments are expected to run migrations from a single process.
type Runner struct {
	db      *persistence.TenantDB
	source  Source
	logger  *zap.Logger
	metrics *metrics.Collector
}

type RunnerConfig struct {
	DB      *persistence.TenantDB
	Source  Source
	Logger  *zap.Logger        // optional
	Metrics *metrics.Collector // optional
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.DB == nil {
		panic("migration runner requires TenantDB")
	}
	if cfg.Source.FS == nil {
		panic("migration runner requires a script source")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{db: cfg.DB, source: cfg.Source, logger: logger, metrics: cfg.Metrics}
}

// Public applies pending public-schema migrations and returns how many
// scripts ran. Idempotent: a second call right after a successful one
// applies zero scripts.
func (r *Runner) Public(ctx context.Context) (int, error) {
	scripts, err := ListScripts(r.source.FS, r.source.PublicDir)
	if err != nil {
		return 0, err
	}

	run := r.db.WithPublic
	return r.apply(ctx, ScopePublic, publicLedgerTable, scripts, run)
}

// Tenant creates the schema and its ledger table if absent, then applies
// pending tenant migrations inside that schema. Every statement runs through
// the tenant-scoped executor, so script bodies use unqualified table names
// and one identical script replays verbatim across every tenant schema.
func (r *Runner) Tenant(ctx context.Context, schemaName string) (int, error) {
	// Validated up front: the name is interpolated into CREATE SCHEMA below.
	if err := persistence.ValidateSchemaName(schemaName); err != nil {
		return 0, err
	}

	scripts, err := ListScripts(r.source.FS, r.source.TenantDir)
	if err != nil {
		return 0, err
	}

	createSchema := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schemaName}.Sanitize()
	if err := r.db.WithPublic(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createSchema)
		return err
	}); err != nil {
		return 0, fmt.Errorf("create schema %s: %w", schemaName, err)
	}

	run := func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return r.db.WithTenant(ctx, schemaName, fn)
	}
	return r.apply(ctx, schemaName, tenantLedgerTable, scripts, run)
}

type txRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

// apply is the algorithm shared by both runners: ensure the ledger exists,
// load the applied set, then run each pending script and its ledger insert
// inside one transaction of its own. The first failure aborts the run.
func (r *Runner) apply(ctx context.Context, scope, ledgerTable string, scripts []Script, run txRunner) (int, error) {
	// Unqualified DDL lands in the first schema of the search_path, which is
	// the scope schema for both runner variants.
	ensureLedger := "CREATE TABLE IF NOT EXISTS " + ledgerTable +
		" (name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())"
	if err := run(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ensureLedger)
		return err
	}); err != nil {
		return 0, fmt.Errorf("ensure ledger %s in scope %s: %w", ledgerTable, scope, err)
	}

	applied := make(map[string]struct{})
	if err := run(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, "SELECT name FROM "+ledgerTable)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			applied[name] = struct{}{}
		}
		return rows.Err()
	}); err != nil {
		return 0, fmt.Errorf("load applied set for scope %s: %w", scope, err)
	}

	count := 0
	for _, script := range pendingScripts(scripts, applied) {
		err := run(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, script.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO "+ledgerTable+" (name) VALUES ($1)", script.Name)
			return err
		})
		if err != nil {
			r.metrics.MigrationFailed(metricScope(scope))
			return count, &MigrationError{Scope: scope, Script: script.Name, Err: err}
		}

		r.metrics.MigrationApplied(metricScope(scope))
		r.logger.Info("applied migration",
			zap.String("scope", scope),
			zap.String("script", script.Name),
		)
		count++
	}

	return count, nil
}

// metricScope collapses tenant schema names into one label value to keep
// metric cardinality bounded.
func metricScope(scope string) string {
	if scope == ScopePublic {
		return ScopePublic
	}
	return "tenant"
}
