package tenant

import (
	"strings"

	"github.com/google/uuid"
)

// SchemaPrefix is the fixed prefix of every tenant schema name. It guarantees
// the derived identifier starts with a letter and keeps tenant schemas
// visually separated from public and extension schemas in the catalog.
const SchemaPrefix = "org_"

// ShortID returns the first 8 hexadecimal characters of a UUID (without dashes).
func ShortID(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	if len(hex) < 8 {
		return hex
	}
	return hex[:8]
}

// BuildSchemaName derives the canonical schema name for an organization:
// org_<first 8 hex chars of the org UUID>. The result always satisfies the
// persistence-layer schema name validator.
func BuildSchemaName(orgID uuid.UUID) string {
	return SchemaPrefix + ShortID(orgID)
}
