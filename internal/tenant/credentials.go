package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCredentialCacheSize bounds the number of cached tenant/service credential entries.
	DefaultCredentialCacheSize = 256
	// DefaultCredentialCacheTTL is how long resolved credentials stay cached before the directory
	// is consulted again, so credential rotation propagates without a process restart.
	DefaultCredentialCacheTTL = 5 * time.Minute
)

// SourceCredentialRegistry resolves tenant source credentials through the tenants directory,
// caching results with TTL eviction. It is passed by reference into the worker rather than kept
// as process-global state.
type SourceCredentialRegistry struct {
	tenantManager ManagerInterface
	cache         *expirable.LRU[string, CredentialMap]
}

func NewSourceCredentialRegistry(tenantManager ManagerInterface, size int, ttl time.Duration) *SourceCredentialRegistry {
	if size <= 0 {
		size = DefaultCredentialCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCredentialCacheTTL
	}
	return &SourceCredentialRegistry{
		tenantManager: tenantManager,
		cache:         expirable.NewLRU[string, CredentialMap](size, nil, ttl),
	}
}

func credentialCacheKey(tenantID string, service ServiceType) string {
	return tenantID + "|" + string(service)
}

// Resolve returns the credentials of one tenant service, consulting the cache first. A tenant
// without credentials for the service yields ErrSourceNotConfigured.
func (r *SourceCredentialRegistry) Resolve(ctx context.Context, tenantID string, service ServiceType) (CredentialMap, error) {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	key := credentialCacheKey(canonicalID, service)
	if credentials, ok := r.cache.Get(key); ok {
		return credentials, nil
	}

	credentials, err := r.tenantManager.GetSourceCredentials(ctx, canonicalID, service)
	if err != nil {
		return nil, fmt.Errorf("resolving %s credentials for tenant %s: %w", service, canonicalID, err)
	}

	r.cache.Add(key, credentials)
	return credentials, nil
}

// Invalidate drops any cached credentials for the tenant, forcing the next Resolve to hit the
// directory. Called after an administrator rotates credentials.
func (r *SourceCredentialRegistry) Invalidate(tenantID string) {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return
	}
	for _, service := range []ServiceType{ServiceTypeWarehouse, ServiceTypeFileTransfer, ServiceTypeMailRelay} {
		r.cache.Remove(credentialCacheKey(canonicalID, service))
	}
}
