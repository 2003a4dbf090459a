package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Space captures the resolved tenant routing metadata for a request. It is
// attached to the context by middleware once the organization has been
// resolved and checked as active; business code downstream never decides the
// schema itself, it only passes Space.SchemaName to TenantDB.WithTenant.
type Space struct {
	OrgID      uuid.UUID
	SchemaName string
}

type ctxKey struct{}

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, ctxKey{}, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}
