package migratecmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sqlassets "github.com/assessio/assessio-backend/database"
	platformlogging "github.com/assessio/assessio-backend/platform/go/logging"
	"github.com/assessio/assessio-backend/platform/go/migrate"
	"github.com/assessio/assessio-backend/platform/go/persistence"
)

// Command groups the migration subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations (public schema, one tenant, or the whole fleet)",
	}

	cmd.AddCommand(publicCommand())
	cmd.AddCommand(tenantCommand())
	cmd.AddCommand(allCommand())
	return cmd
}

type deps struct {
	logger *zap.Logger
	pool   func()
	runner *migrate.Runner
	orgs   *persistence.OrgStore
}

// setup wires pool, runner and registry for one command invocation. The
// returned cleanup closes the pool.
func setup(ctx context.Context, databaseURL, scriptsDir string) (*deps, error) {
	logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "cli", Level: "info"})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}

	var fsys fs.FS = sqlassets.Migrations
	publicDir, tenantDir := sqlassets.PublicDir, sqlassets.TenantDir
	if scriptsDir != "" {
		// Operators can point at an on-disk checkout instead of the
		// embedded assets, e.g. to test unreleased migrations.
		fsys = os.DirFS(scriptsDir)
		publicDir, tenantDir = "public", "tenant"
	}

	db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool})
	runner := migrate.NewRunner(migrate.RunnerConfig{
		DB:     db,
		Source: migrate.Source{FS: fsys, PublicDir: publicDir, TenantDir: tenantDir},
		Logger: logger,
	})

	orgs, err := persistence.NewOrgStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init org store: %w", err)
	}

	return &deps{
		logger: logger,
		pool:   func() { persistence.ClosePool(pool) },
		runner: runner,
		orgs:   orgs,
	}, nil
}

func databaseURLFlag(c *cobra.Command, target *string) {
	c.Flags().StringVar(target, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
}

func publicCommand() *cobra.Command {
	var (
		databaseURL string
		scriptsDir  string
	)

	c := &cobra.Command{
		Use:   "public",
		Short: "Apply pending public-schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx, databaseURL, scriptsDir)
			if err != nil {
				return err
			}
			defer d.pool()

			applied, err := d.runner.Public(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("public schema: %d migration(s) applied\n", applied)
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&scriptsDir, "scripts-dir", "", "override embedded migrations with an on-disk directory")
	return c
}

func tenantCommand() *cobra.Command {
	var (
		databaseURL string
		scriptsDir  string
		schema      string
	)

	c := &cobra.Command{
		Use:   "tenant",
		Short: "Create a tenant schema if missing and apply its pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx, databaseURL, scriptsDir)
			if err != nil {
				return err
			}
			defer d.pool()

			applied, err := d.runner.Tenant(ctx, schema)
			if err != nil {
				return err
			}
			fmt.Printf("schema %s: %d migration(s) applied\n", schema, applied)
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&scriptsDir, "scripts-dir", "", "override embedded migrations with an on-disk directory")
	c.Flags().StringVar(&schema, "schema", "", "tenant schema name")
	_ = c.MarkFlagRequired("schema")
	return c
}

func allCommand() *cobra.Command {
	var (
		databaseURL string
		scriptsDir  string
	)

	c := &cobra.Command{
		Use:   "all",
		Short: "Apply public migrations, then sweep every active tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx, databaseURL, scriptsDir)
			if err != nil {
				return err
			}
			defer d.pool()

			applied, err := d.runner.Public(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("public schema: %d migration(s) applied\n", applied)

			fleet := migrate.NewFleet(d.orgs, d.runner, d.logger)
			report, err := fleet.MigrateAll(ctx)
			if err != nil {
				return err
			}

			for schema, n := range report.Migrated {
				fmt.Printf("schema %s: %d migration(s) applied\n", schema, n)
			}
			for _, failure := range report.Failed {
				fmt.Printf("schema %s: FAILED: %v\n", failure.Schema, failure.Err)
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d tenant(s) failed to migrate", len(report.Failed))
			}
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&scriptsDir, "scripts-dir", "", "override embedded migrations with an on-disk directory")
	return c
}
