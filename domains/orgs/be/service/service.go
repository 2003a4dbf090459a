package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/assessio/assessio-backend/platform/go/persistence"
	"github.com/assessio/assessio-backend/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound     = errors.New("organization not found")
	ErrInvalidInput = errors.New("invalid organization input")
)

// Organization is the domain model for a registry entry.
type Organization struct {
	ID             uuid.UUID
	Name           string
	SchemaName     string
	Status         persistence.OrgStatus
	CreditsBalance int64
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProvisionInput is the request to create and bootstrap an organization.
type ProvisionInput struct {
	Name       string
	AdminEmail string
	AdminName  string
}

// Registry abstracts the organization registry store.
type Registry interface {
	Create(ctx context.Context, rec persistence.OrgRecord) (persistence.OrgRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (persistence.OrgRecord, error)
	List(ctx context.Context, limit, offset int) ([]persistence.OrgRecord, error)
	SetStatus(ctx context.Context, id uuid.UUID, status persistence.OrgStatus, lastError *string) error
	AddCredits(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
}

// TenantMigrator creates and upgrades one tenant schema. Implemented by
// migrate.Runner.
type TenantMigrator interface {
	Tenant(ctx context.Context, schemaName string) (int, error)
}

// TenantExecutor runs a unit of work bound to one tenant schema. Implemented
// by persistence.TenantDB.
type TenantExecutor interface {
	WithTenant(ctx context.Context, schemaName string, fn func(tx pgx.Tx) error) error
}

// Service owns the organization lifecycle: registry row, tenant schema
// provisioning, admin seeding, status transitions.
type Service struct {
	registry Registry
	migrator TenantMigrator
	db       TenantExecutor
	logger   *zap.Logger
}

func New(registry Registry, migrator TenantMigrator, db TenantExecutor, logger *zap.Logger) *Service {
	if registry == nil {
		panic("orgs service requires registry")
	}
	if migrator == nil {
		panic("orgs service requires tenant migrator")
	}
	if db == nil {
		panic("orgs service requires tenant executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, migrator: migrator, db: db, logger: logger}
}

// Provision creates the registry row in provisioning state, then migrates
// and seeds the tenant schema. A failure after the row exists leaves the
// organization in provisioning with the error recorded; CompleteProvisioning
// can be re-run for it.
func (s *Service) Provision(ctx context.Context, input ProvisionInput) (Organization, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Organization{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.AdminEmail) == "" {
		return Organization{}, fmt.Errorf("%w: admin email is required", ErrInvalidInput)
	}

	id := uuid.New()
	schemaName := tenant.BuildSchemaName(id)
	if err := persistence.ValidateSchemaName(schemaName); err != nil {
		return Organization{}, err
	}

	rec, err := s.registry.Create(ctx, persistence.OrgRecord{
		ID:         id,
		Name:       strings.TrimSpace(input.Name),
		SchemaName: schemaName,
		Status:     persistence.OrgStatusProvisioning,
	})
	if err != nil {
		return Organization{}, fmt.Errorf("create organization: %w", err)
	}

	if err := s.completeProvisioning(ctx, rec, input); err != nil {
		return toDomain(rec), err
	}

	return s.Get(ctx, id)
}

// CompleteProvisioning re-runs migration and seeding for an organization
// stuck in provisioning (e.g., after a failed deploy). Idempotent.
func (s *Service) CompleteProvisioning(ctx context.Context, id uuid.UUID, input ProvisionInput) (Organization, error) {
	rec, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return Organization{}, mapRegistryError(err)
	}
	if rec.Status == persistence.OrgStatusActive {
		return toDomain(rec), nil
	}

	if err := s.completeProvisioning(ctx, rec, input); err != nil {
		return toDomain(rec), err
	}
	return s.Get(ctx, id)
}

func (s *Service) completeProvisioning(ctx context.Context, rec persistence.OrgRecord, input ProvisionInput) error {
	if _, err := s.migrator.Tenant(ctx, rec.SchemaName); err != nil {
		s.recordFailure(ctx, rec.ID, err)
		return fmt.Errorf("migrate tenant schema %s: %w", rec.SchemaName, err)
	}

	if err := s.seedAdmin(ctx, rec, input); err != nil {
		s.recordFailure(ctx, rec.ID, err)
		return fmt.Errorf("seed tenant schema %s: %w", rec.SchemaName, err)
	}

	if err := s.registry.SetStatus(ctx, rec.ID, persistence.OrgStatusActive, nil); err != nil {
		return fmt.Errorf("activate organization: %w", err)
	}

	s.logger.Info("organization provisioned",
		zap.String("org_id", rec.ID.String()),
		zap.String("schema", rec.SchemaName),
	)
	return nil
}

// seedAdmin inserts the baseline admin user and an audit entry inside one
// tenant-scoped transaction. ON CONFLICT keeps re-runs idempotent.
func (s *Service) seedAdmin(ctx context.Context, rec persistence.OrgRecord, input ProvisionInput) error {
	adminName := strings.TrimSpace(input.AdminName)
	if adminName == "" {
		adminName = input.AdminEmail
	}

	return s.db.WithTenant(ctx, rec.SchemaName, func(tx pgx.Tx) error {
		adminID := uuid.New()
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role)
			VALUES ($1, $2, $3, 'admin')
			ON CONFLICT (email) DO NOTHING`,
			adminID, input.AdminEmail, adminName,
		); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO audit_log (actor_id, action, entity, entity_id)
			VALUES (NULL, 'org.provisioned', 'organization', $1)`,
			rec.ID.String(),
		); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
}

func (s *Service) recordFailure(ctx context.Context, id uuid.UUID, cause error) {
	msg := cause.Error()
	if err := s.registry.SetStatus(ctx, id, persistence.OrgStatusProvisioning, &msg); err != nil {
		s.logger.Error("record provisioning failure",
			zap.String("org_id", id.String()),
			zap.Error(err),
		)
	}
}

// Get fetches one organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	rec, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return Organization{}, mapRegistryError(err)
	}
	return toDomain(rec), nil
}

// List returns organizations, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Organization, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := s.registry.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	orgs := make([]Organization, 0, len(recs))
	for _, rec := range recs {
		orgs = append(orgs, toDomain(rec))
	}
	return orgs, nil
}

// Disable rejects all future tenant-scoped operations for the organization.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) error {
	return mapRegistryError(s.registry.SetStatus(ctx, id, persistence.OrgStatusDisabled, nil))
}

// Enable re-activates a disabled organization.
func (s *Service) Enable(ctx context.Context, id uuid.UUID) error {
	return mapRegistryError(s.registry.SetStatus(ctx, id, persistence.OrgStatusActive, nil))
}

// AddCredits adjusts the billing balance and returns the new value.
func (s *Service) AddCredits(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	balance, err := s.registry.AddCredits(ctx, id, delta)
	return balance, mapRegistryError(err)
}

func mapRegistryError(err error) error {
	if errors.Is(err, persistence.ErrOrgNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func toDomain(rec persistence.OrgRecord) Organization {
	return Organization{
		ID:             rec.ID,
		Name:           rec.Name,
		SchemaName:     rec.SchemaName,
		Status:         rec.Status,
		CreditsBalance: rec.CreditsBalance,
		LastError:      rec.LastError,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}
