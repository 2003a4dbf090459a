package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestListScriptsOrdersAndFilters(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"tenant/0002_tests.sql":       {Data: []byte("CREATE TABLE tests (id UUID PRIMARY KEY)")},
		"tenant/0001_users.sql":       {Data: []byte("CREATE TABLE users (id UUID PRIMARY KEY)")},
		"tenant/0010_audit_log.sql":   {Data: []byte("CREATE TABLE audit_log (id BIGSERIAL)")},
		"tenant/README.md":            {Data: []byte("not a migration")},
		"tenant/archive/0000_old.sql": {Data: []byte("ignored, nested")},
	}

	scripts, err := ListScripts(fsys, "tenant")
	require.NoError(t, err)

	names := make([]string, 0, len(scripts))
	for _, s := range scripts {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"0001_users.sql", "0002_tests.sql", "0010_audit_log.sql"}, names)
	require.Equal(t, "CREATE TABLE users (id UUID PRIMARY KEY)", scripts[0].SQL)
}

func TestListScriptsMissingDirIsFatal(t *testing.T) {
	t.Parallel()

	_, err := ListScripts(fstest.MapFS{}, "nope")
	require.Error(t, err)
}

func TestListScriptsEmptyDirIsEmptyCatalog(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"tenant/.gitkeep": {Data: nil}}
	scripts, err := ListScripts(fsys, "tenant")
	require.NoError(t, err)
	require.Empty(t, scripts)
}

func TestPendingScriptsPreservesOrder(t *testing.T) {
	t.Parallel()

	scripts := []Script{
		{Name: "0001_users.sql"},
		{Name: "0002_tests.sql"},
		{Name: "0003_candidates.sql"},
	}
	applied := map[string]struct{}{"0002_tests.sql": {}}

	pending := pendingScripts(scripts, applied)
	require.Len(t, pending, 2)
	require.Equal(t, "0001_users.sql", pending[0].Name)
	require.Equal(t, "0003_candidates.sql", pending[1].Name)

	require.Empty(t, pendingScripts(nil, nil))
}
