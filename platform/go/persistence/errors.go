package persistence

import (
	"errors"
	"fmt"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrInvalidSchemaName marks a schema identifier that failed validation.
	// Always a caller bug or an injection attempt; never retried.
	ErrInvalidSchemaName = errors.New("invalid schema name")

	// ErrConnection marks a failure reaching the database (pool exhausted,
	// connection refused, begin failed). The whole operation may be retried
	// at a higher layer; the core never retries silently.
	ErrConnection = errors.New("database connection error")
)

// connectionError tags an infra failure with ErrConnection while keeping the
// underlying pgx error in the chain.
func connectionError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
}
