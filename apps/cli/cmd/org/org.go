package orgcmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sqlassets "github.com/assessio/assessio-backend/database"
	"github.com/assessio/assessio-backend/domains/orgs/be/service"
	platformlogging "github.com/assessio/assessio-backend/platform/go/logging"
	"github.com/assessio/assessio-backend/platform/go/migrate"
	"github.com/assessio/assessio-backend/platform/go/persistence"
)

// Command groups organization lifecycle helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Organization utilities (create/disable/enable/list)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(disableCommand())
	cmd.AddCommand(enableCommand())
	cmd.AddCommand(listCommand())
	return cmd
}

// newService wires the full provisioning stack for one command run.
func newService(cmd *cobra.Command, databaseURL string) (*service.Service, func(), error) {
	ctx := cmd.Context()

	logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "cli", Level: "info"})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}
	cleanup := func() { persistence.ClosePool(pool) }

	orgStore, err := persistence.NewOrgStore(pool)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init org store: %w", err)
	}

	db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool})
	runner := migrate.NewRunner(migrate.RunnerConfig{
		DB: db,
		Source: migrate.Source{
			FS:        sqlassets.Migrations,
			PublicDir: sqlassets.PublicDir,
			TenantDir: sqlassets.TenantDir,
		},
		Logger: logger,
	})

	return service.New(orgStore, runner, db, logger), cleanup, nil
}

func databaseURLFlag(c *cobra.Command, target *string) {
	c.Flags().StringVar(target, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		name        string
		adminEmail  string
		adminName   string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an organization: registry row, tenant schema, migrations, admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			org, err := svc.Provision(cmd.Context(), service.ProvisionInput{
				Name:       name,
				AdminEmail: adminEmail,
				AdminName:  adminName,
			})
			if err != nil {
				return err
			}

			fmt.Printf("organization %s created\n  id:     %s\n  schema: %s\n  status: %s\n",
				org.Name, org.ID, org.SchemaName, org.Status)
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&name, "name", "", "organization display name")
	c.Flags().StringVar(&adminEmail, "admin-email", "", "email of the seeded admin user")
	c.Flags().StringVar(&adminName, "admin-name", "", "full name of the seeded admin user")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("admin-email")
	return c
}

func statusCommand(use, short string, apply func(*service.Service, *cobra.Command, uuid.UUID) error) *cobra.Command {
	var (
		databaseURL string
		orgID       string
	)

	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("parse org id: %w", err)
			}

			svc, cleanup, err := newService(cmd, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := apply(svc, cmd, id); err != nil {
				return err
			}
			fmt.Printf("organization %s updated\n", id)
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&orgID, "id", "", "organization id")
	_ = c.MarkFlagRequired("id")
	return c
}

func disableCommand() *cobra.Command {
	return statusCommand("disable", "Disable an organization (tenant requests will be rejected)",
		func(svc *service.Service, cmd *cobra.Command, id uuid.UUID) error {
			return svc.Disable(cmd.Context(), id)
		})
}

func enableCommand() *cobra.Command {
	return statusCommand("enable", "Re-activate a disabled organization",
		func(svc *service.Service, cmd *cobra.Command, id uuid.UUID) error {
			return svc.Enable(cmd.Context(), id)
		})
}

func listCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			orgs, err := svc.List(cmd.Context(), 200, 0)
			if err != nil {
				return err
			}

			for _, org := range orgs {
				fmt.Printf("%s  %-12s  %-20s  %s\n", org.ID, org.Status, org.SchemaName, org.Name)
			}
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	return c
}
