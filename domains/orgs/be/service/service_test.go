package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/assessio/assessio-backend/platform/go/persistence"
)

type fakeRegistry struct {
	recs map[uuid.UUID]persistence.OrgRecord
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{recs: make(map[uuid.UUID]persistence.OrgRecord)}
}

func (r *fakeRegistry) Create(ctx context.Context, rec persistence.OrgRecord) (persistence.OrgRecord, error) {
	r.recs[rec.ID] = rec
	return rec, nil
}

func (r *fakeRegistry) GetByID(ctx context.Context, id uuid.UUID) (persistence.OrgRecord, error) {
	rec, ok := r.recs[id]
	if !ok {
		return persistence.OrgRecord{}, persistence.ErrOrgNotFound
	}
	return rec, nil
}

func (r *fakeRegistry) List(ctx context.Context, limit, offset int) ([]persistence.OrgRecord, error) {
	var out []persistence.OrgRecord
	for _, rec := range r.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeRegistry) SetStatus(ctx context.Context, id uuid.UUID, status persistence.OrgStatus, lastError *string) error {
	rec, ok := r.recs[id]
	if !ok {
		return persistence.ErrOrgNotFound
	}
	rec.Status = status
	rec.LastError = lastError
	r.recs[id] = rec
	return nil
}

func (r *fakeRegistry) AddCredits(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	rec, ok := r.recs[id]
	if !ok {
		return 0, persistence.ErrOrgNotFound
	}
	rec.CreditsBalance += delta
	r.recs[id] = rec
	return rec.CreditsBalance, nil
}

type fakeMigrator struct {
	schemas []string
	err     error
}

func (m *fakeMigrator) Tenant(ctx context.Context, schemaName string) (int, error) {
	m.schemas = append(m.schemas, schemaName)
	if m.err != nil {
		return 0, m.err
	}
	return 5, nil
}

// seedTx records Exec statements from the seeding unit of work.
type seedTx struct{ stmts []string }

func (f *seedTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errors.New("not implemented") }
func (f *seedTx) Commit(ctx context.Context) error          { return nil }
func (f *seedTx) Rollback(ctx context.Context) error        { return nil }
func (f *seedTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *seedTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *seedTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *seedTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *seedTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *seedTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (f *seedTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return pgconn.CommandTag{}, nil
}
func (f *seedTx) Conn() *pgx.Conn { return nil }

type fakeExecutor struct {
	schemas []string
	tx      *seedTx
	err     error
}

func (e *fakeExecutor) WithTenant(ctx context.Context, schemaName string, fn func(tx pgx.Tx) error) error {
	e.schemas = append(e.schemas, schemaName)
	if e.err != nil {
		return e.err
	}
	return fn(e.tx)
}

func TestProvisionHappyPath(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	migrator := &fakeMigrator{}
	executor := &fakeExecutor{tx: &seedTx{}}
	svc := New(registry, migrator, executor, nil)

	org, err := svc.Provision(context.Background(), ProvisionInput{
		Name:       "Acme Hiring",
		AdminEmail: "admin@acme.example",
		AdminName:  "Ada Admin",
	})
	require.NoError(t, err)
	require.Equal(t, persistence.OrgStatusActive, org.Status)
	require.True(t, strings.HasPrefix(org.SchemaName, "org_"))
	require.Nil(t, org.LastError)

	// Migration and seeding both target the derived schema.
	require.Equal(t, []string{org.SchemaName}, migrator.schemas)
	require.Equal(t, []string{org.SchemaName}, executor.schemas)

	require.Len(t, executor.tx.stmts, 2)
	require.Contains(t, executor.tx.stmts[0], "INSERT INTO users")
	require.Contains(t, executor.tx.stmts[1], "INSERT INTO audit_log")
}

func TestProvisionValidatesInput(t *testing.T) {
	t.Parallel()

	svc := New(newFakeRegistry(), &fakeMigrator{}, &fakeExecutor{tx: &seedTx{}}, nil)

	_, err := svc.Provision(context.Background(), ProvisionInput{AdminEmail: "a@b.c"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Provision(context.Background(), ProvisionInput{Name: "Acme"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestProvisionMigrationFailureLeavesOrgProvisioning(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	boom := errors.New("broken migration")
	svc := New(registry, &fakeMigrator{err: boom}, &fakeExecutor{tx: &seedTx{}}, nil)

	org, err := svc.Provision(context.Background(), ProvisionInput{
		Name:       "Acme Hiring",
		AdminEmail: "admin@acme.example",
	})
	require.ErrorIs(t, err, boom)

	stored, getErr := svc.Get(context.Background(), org.ID)
	require.NoError(t, getErr)
	require.Equal(t, persistence.OrgStatusProvisioning, stored.Status)
	require.NotNil(t, stored.LastError)
	require.Contains(t, *stored.LastError, "broken migration")
}

func TestCompleteProvisioningIsIdempotentOnActiveOrg(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	migrator := &fakeMigrator{}
	executor := &fakeExecutor{tx: &seedTx{}}
	svc := New(registry, migrator, executor, nil)

	org, err := svc.Provision(context.Background(), ProvisionInput{
		Name:       "Acme Hiring",
		AdminEmail: "admin@acme.example",
	})
	require.NoError(t, err)

	again, err := svc.CompleteProvisioning(context.Background(), org.ID, ProvisionInput{})
	require.NoError(t, err)
	require.Equal(t, persistence.OrgStatusActive, again.Status)
	// Already active: no second migration run.
	require.Len(t, migrator.schemas, 1)
}

func TestDisableUnknownOrg(t *testing.T) {
	t.Parallel()

	svc := New(newFakeRegistry(), &fakeMigrator{}, &fakeExecutor{tx: &seedTx{}}, nil)
	err := svc.Disable(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddCredits(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	svc := New(registry, &fakeMigrator{}, &fakeExecutor{tx: &seedTx{}}, nil)

	org, err := svc.Provision(context.Background(), ProvisionInput{
		Name:       "Acme Hiring",
		AdminEmail: "admin@acme.example",
	})
	require.NoError(t, err)

	balance, err := svc.AddCredits(context.Background(), org.ID, 250)
	require.NoError(t, err)
	require.EqualValues(t, 250, balance)
}
