package tenant

import (
	"context"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

// SaveTenantInContext returns a copy of ctx carrying the given tenant.
func SaveTenantInContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, t)
}

// GetTenantFromContext retrieves the tenant stored by SaveTenantInContext.
func GetTenantFromContext(ctx context.Context) (*Tenant, error) {
	t, ok := ctx.Value(tenantContextKey).(*Tenant)
	if !ok || t == nil {
		return nil, ErrTenantNotFoundInContext
	}
	return t, nil
}
