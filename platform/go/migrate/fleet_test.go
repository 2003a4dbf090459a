package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubLister struct {
	schemas []string
	err     error
}

func (s *stubLister) ListActiveSchemas(ctx context.Context) ([]string, error) {
	return s.schemas, s.err
}

type stubMigrator struct {
	applied map[string]int
	failing map[string]error
	calls   []string
}

func (m *stubMigrator) Tenant(ctx context.Context, schema string) (int, error) {
	m.calls = append(m.calls, schema)
	if err, ok := m.failing[schema]; ok {
		return 0, err
	}
	return m.applied[schema], nil
}

func TestMigrateAllTolerantOfSingleFailure(t *testing.T) {
	t.Parallel()

	poisoned := &MigrationError{Scope: "org_bbbbbbbb", Script: "0002_tests.sql", Err: errors.New("syntax error")}
	migrator := &stubMigrator{
		applied: map[string]int{"org_aaaaaaaa": 2, "org_cccccccc": 0},
		failing: map[string]error{"org_bbbbbbbb": poisoned},
	}
	fleet := NewFleet(&stubLister{schemas: []string{"org_aaaaaaaa", "org_bbbbbbbb", "org_cccccccc"}}, migrator, nil)

	report, err := fleet.MigrateAll(context.Background())
	require.NoError(t, err)

	// Every schema is attempted even though the middle one fails.
	require.Equal(t, []string{"org_aaaaaaaa", "org_bbbbbbbb", "org_cccccccc"}, migrator.calls)
	require.Equal(t, map[string]int{"org_aaaaaaaa": 2, "org_cccccccc": 0}, report.Migrated)
	require.Len(t, report.Failed, 1)
	require.Equal(t, "org_bbbbbbbb", report.Failed[0].Schema)
	require.ErrorIs(t, report.Failed[0].Err, poisoned)
}

func TestMigrateAllListFailureIsFatal(t *testing.T) {
	t.Parallel()

	fleet := NewFleet(&stubLister{err: errors.New("registry unavailable")}, &stubMigrator{}, nil)

	_, err := fleet.MigrateAll(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "list active schemas")
}

func TestMigrateAllEmptyFleet(t *testing.T) {
	t.Parallel()

	fleet := NewFleet(&stubLister{}, &stubMigrator{}, nil)

	report, err := fleet.MigrateAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Migrated)
	require.Empty(t, report.Failed)
}
