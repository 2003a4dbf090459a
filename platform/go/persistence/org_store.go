package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assessio/assessio-backend/platform/go/tenant"
)

// OrganizationsTable is the fully-qualified organization registry table.
const OrganizationsTable = "public.organizations"

// ErrOrgNotFound is returned when no organization matches the lookup.
var ErrOrgNotFound = errors.New("organization not found")

// ErrOrgNotActive is returned when resolving a tenant whose organization is
// disabled or still provisioning.
var ErrOrgNotActive = errors.New("organization not active")

// OrgStatus is the lifecycle state of an organization.
type OrgStatus string

const (
	// OrgStatusProvisioning means the registry row exists but the tenant
	// schema has not been fully migrated and seeded yet.
	OrgStatusProvisioning OrgStatus = "provisioning"
	OrgStatusActive       OrgStatus = "active"
	OrgStatusDisabled     OrgStatus = "disabled"
)

// OrgRecord represents one row of the organization registry.
type OrgRecord struct {
	ID             uuid.UUID
	Name           string
	SchemaName     string
	Status         OrgStatus
	CreditsBalance int64
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrgStore provides access to the organization registry in the public schema.
type OrgStore struct {
	pool *pgxpool.Pool
}

// NewOrgStore creates a store; assumes public migrations already created the table.
func NewOrgStore(pool *pgxpool.Pool) (*OrgStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &OrgStore{pool: pool}, nil
}

const orgColumns = "id, name, schema_name, status, credits_balance, last_error, created_at, updated_at"

// Create inserts a new organization. The schema name is validated here as
// well because it ends up interpolated into DDL during provisioning.
func (s *OrgStore) Create(ctx context.Context, rec OrgRecord) (OrgRecord, error) {
	if rec.ID == uuid.Nil {
		return OrgRecord{}, errors.New("org id is required")
	}
	if rec.Name == "" {
		return OrgRecord{}, errors.New("org name is required")
	}
	if err := ValidateSchemaName(rec.SchemaName); err != nil {
		return OrgRecord{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (id, name, schema_name, status, credits_balance, last_error, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING %s
    `, OrganizationsTable, orgColumns)

	row := s.pool.QueryRow(ctx, query,
		rec.ID, rec.Name, rec.SchemaName, rec.Status, rec.CreditsBalance, rec.LastError,
	)
	return scanOrgRecord(row)
}

// GetByID fetches one organization.
func (s *OrgStore) GetByID(ctx context.Context, id uuid.UUID) (OrgRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", orgColumns, OrganizationsTable)
	rec, err := scanOrgRecord(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return OrgRecord{}, fmt.Errorf("%w: %s", ErrOrgNotFound, id)
	}
	return rec, err
}

// List returns organizations ordered by creation time, newest first.
func (s *OrgStore) List(ctx context.Context, limit, offset int) ([]OrgRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		orgColumns, OrganizationsTable)

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OrgRecord
	for rows.Next() {
		rec, err := scanOrgRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListActiveSchemas returns the schema names of every active organization,
// in creation order. This is the fleet the migration orchestrator iterates.
func (s *OrgStore) ListActiveSchemas(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT schema_name FROM %s WHERE status = $1 ORDER BY created_at",
		OrganizationsTable)

	rows, err := s.pool.Query(ctx, query, OrgStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var schema string
		if err := rows.Scan(&schema); err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return schemas, rows.Err()
}

// SetStatus transitions the lifecycle state and records the last provisioning
// error (nil clears it).
func (s *OrgStore) SetStatus(ctx context.Context, id uuid.UUID, status OrgStatus, lastError *string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET status = $2, last_error = $3, updated_at = NOW() WHERE id = $1",
		OrganizationsTable)

	tag, err := s.pool.Exec(ctx, query, id, status, lastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrOrgNotFound, id)
	}
	return nil
}

// AddCredits adjusts the credit balance atomically and returns the new value.
func (s *OrgStore) AddCredits(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET credits_balance = credits_balance + $2, updated_at = NOW() WHERE id = $1 RETURNING credits_balance",
		OrganizationsTable)

	var balance int64
	err := s.pool.QueryRow(ctx, query, id, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrOrgNotFound, id)
	}
	return balance, err
}

// ResolveSpace looks up the routing metadata for a request. Only active
// organizations resolve; unknown and non-active ones both fail so callers
// reject the request before any tenant-scoped work starts.
func (s *OrgStore) ResolveSpace(ctx context.Context, id uuid.UUID) (tenant.Space, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return tenant.Space{}, err
	}
	if rec.Status != OrgStatusActive {
		return tenant.Space{}, fmt.Errorf("%w: %s is %s", ErrOrgNotActive, id, rec.Status)
	}
	return tenant.Space{OrgID: rec.ID, SchemaName: rec.SchemaName}, nil
}

func scanOrgRecord(row pgx.Row) (OrgRecord, error) {
	var rec OrgRecord
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.SchemaName, &rec.Status,
		&rec.CreditsBalance, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
