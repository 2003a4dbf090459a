package persistence

import (
	"fmt"
	"regexp"
	"strings"
)

// Postgres truncates identifiers at 63 bytes; longer names would silently
// collide, so they are rejected outright.
const maxSchemaNameLength = 63

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateSchemaName enforces that a tenant schema identifier is safe to
// interpolate into DDL and search_path assignments. Schema names cannot be
// bound as statement parameters, so this check is the single injection
// defense and must run before every interpolation point.
func ValidateSchemaName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSchemaName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidSchemaName, name)
	}
	if len(name) > maxSchemaNameLength {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidSchemaName, name, maxSchemaNameLength)
	}
	if !schemaNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match ^[a-z_][a-z0-9_]*$", ErrInvalidSchemaName, name)
	}
	if strings.HasPrefix(name, "pg_") {
		return fmt.Errorf("%w: %q uses the reserved pg_ prefix", ErrInvalidSchemaName, name)
	}
	return nil
}
