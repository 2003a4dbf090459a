package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assessio/assessio-backend/platform/go/persistence"
	"github.com/assessio/assessio-backend/platform/go/tenant"
)

// OrgHeader carries the organization identifier resolved by the upstream
// auth layer. This middleware trusts it; authentication is not its job.
const OrgHeader = "X-Org-ID"

// Resolver defines the minimal lookup capability required to populate a
// tenant Space. Implemented by persistence.OrgStore.
type Resolver interface {
	ResolveSpace(ctx context.Context, orgID uuid.UUID) (tenant.Space, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid a registry hit per
	// request; zero disables caching. Disabling an org can take up to
	// CacheTTL to propagate to cached entries.
	CacheTTL time.Duration
}

// WithTenantSpace resolves the organization from the request header and
// attaches tenant.Space to the context. Unknown organizations get 404,
// disabled or still-provisioning ones 403; in both cases the request never
// reaches a tenant-scoped transaction.
func WithTenantSpace(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *spaceCache
	if cfg.CacheTTL > 0 {
		cache = newSpaceCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(OrgHeader)
			if raw == "" {
				http.Error(w, "organization required", http.StatusUnauthorized)
				return
			}

			orgID, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid organization id", http.StatusBadRequest)
				return
			}

			if cached, ok := cache.get(orgID); ok {
				next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), cached)))
				return
			}

			space, err := resolver.ResolveSpace(r.Context(), orgID)
			switch {
			case errors.Is(err, persistence.ErrOrgNotFound):
				http.Error(w, "organization not found", http.StatusNotFound)
				return
			case errors.Is(err, persistence.ErrOrgNotActive):
				http.Error(w, "organization disabled", http.StatusForbidden)
				return
			case err != nil:
				http.Error(w, "tenant resolution failed", http.StatusInternalServerError)
				return
			}

			cache.put(space)

			next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), space)))
		})
	}
}

// spaceCache is a small TTL cache owned by the middleware instance. All
// methods are nil-safe so a disabled cache needs no branching at call sites.
type spaceCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[uuid.UUID]cacheItem
}

type cacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

func newSpaceCache(ttl time.Duration) *spaceCache {
	return &spaceCache{ttl: ttl, items: make(map[uuid.UUID]cacheItem)}
}

func (c *spaceCache) get(id uuid.UUID) (tenant.Space, bool) {
	if c == nil {
		return tenant.Space{}, false
	}
	c.mu.RLock()
	item, ok := c.items[id]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expiresAt) {
		return tenant.Space{}, false
	}
	return item.space, true
}

func (c *spaceCache) put(space tenant.Space) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[space.OrgID] = cacheItem{space: space, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
