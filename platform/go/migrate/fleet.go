package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SchemaLister supplies the fleet: the schema names of every active
// organization. Implemented by persistence.OrgStore.
type SchemaLister interface {
	ListActiveSchemas(ctx context.Context) ([]string, error)
}

// TenantMigrator migrates one tenant schema. Implemented by Runner.
type TenantMigrator interface {
	Tenant(ctx context.Context, schemaName string) (int, error)
}

// SchemaFailure records one tenant whose migration run failed.
type SchemaFailure struct {
	Schema string
	Err    error
}

// FleetReport summarises a fleet sweep. Migrated maps each successfully
// processed schema to the number of scripts applied (zero for up-to-date
// tenants).
type FleetReport struct {
	Migrated map[string]int
	Failed   []SchemaFailure
}

// Fleet migrates every active tenant schema sequentially. Unlike the
// single-schema runner it tolerates partial failure: one tenant's broken
// migration is logged and reported but never blocks the remaining tenants.
type Fleet struct {
	schemas  SchemaLister
	migrator TenantMigrator
	logger   *zap.Logger
}

func NewFleet(schemas SchemaLister, migrator TenantMigrator, logger *zap.Logger) *Fleet {
	if schemas == nil {
		panic("fleet requires a schema lister")
	}
	if migrator == nil {
		panic("fleet requires a tenant migrator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fleet{schemas: schemas, migrator: migrator, logger: logger}
}

// MigrateAll sweeps the fleet. It returns an error only when the fleet
// itself cannot be listed; per-tenant failures land in the report.
func (f *Fleet) MigrateAll(ctx context.Context) (FleetReport, error) {
	schemas, err := f.schemas.ListActiveSchemas(ctx)
	if err != nil {
		return FleetReport{}, fmt.Errorf("list active schemas: %w", err)
	}

	report := FleetReport{Migrated: make(map[string]int)}
	for _, schema := range schemas {
		applied, err := f.migrator.Tenant(ctx, schema)
		if err != nil {
			f.logger.Error("tenant migration failed",
				zap.String("schema", schema),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, SchemaFailure{Schema: schema, Err: err})
			continue
		}

		if applied > 0 {
			f.logger.Info("tenant migrated",
				zap.String("schema", schema),
				zap.Int("applied", applied),
			)
		}
		report.Migrated[schema] = applied
	}

	return report, nil
}
