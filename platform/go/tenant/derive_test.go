package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildSchemaName(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	require.Equal(t, "org_1a2b3c4d", BuildSchemaName(id))
}

func TestShortIDIsStable(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	require.Equal(t, ShortID(id), ShortID(id))
	require.Len(t, ShortID(id), 8)
}
