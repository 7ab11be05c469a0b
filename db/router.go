package db

import (
	"fmt"
	"net/url"
)

// TenantDatabaseNamePrefix is the fixed prefix of every tenant-owned physical
// database. The full name is `storelens-<tenant_id>` where tenant_id is the
// canonical UUID text form.
const TenantDatabaseNamePrefix = "storelens-"

// TenantDatabaseName returns the physical database name for a tenant.
func TenantDatabaseName(tenantID string) string {
	return TenantDatabaseNamePrefix + tenantID
}

// DSNForTenant derives a tenant database DSN from the root database DSN. It is the same DSN with
// the path (AKA database name) replaced by the tenant's dedicated database name.
func DSNForTenant(dataSourceName, tenantID string) (string, error) {
	u, err := url.Parse(dataSourceName)
	if err != nil {
		return "", fmt.Errorf("parsing database DSN: %w", err)
	}

	u.Path = "/" + TenantDatabaseName(tenantID)

	return u.String(), nil
}
