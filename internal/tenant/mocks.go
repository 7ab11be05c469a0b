package tenant

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// TenantManagerMock mocks ManagerInterface.
type TenantManagerMock struct {
	mock.Mock
}

var _ ManagerInterface = (*TenantManagerMock)(nil)

func (m *TenantManagerMock) AddTenant(ctx context.Context, name string) (*Tenant, error) {
	args := m.Called(ctx, name)
	if t := args.Get(0); t != nil {
		return t.(*Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantManagerMock) GetAllTenants(ctx context.Context) ([]Tenant, error) {
	args := m.Called(ctx)
	if t := args.Get(0); t != nil {
		return t.([]Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantManagerMock) GetTenantByID(ctx context.Context, tenantID string) (*Tenant, error) {
	args := m.Called(ctx, tenantID)
	if t := args.Get(0); t != nil {
		return t.(*Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantManagerMock) GetTenantServiceStatus(ctx context.Context, tenantID string) (map[ServiceType]ServiceStatus, error) {
	args := m.Called(ctx, tenantID)
	if t := args.Get(0); t != nil {
		return t.(map[ServiceType]ServiceStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantManagerMock) UpdateServiceStatus(ctx context.Context, tenantID string, service ServiceType, enabled bool, validationError *string) error {
	args := m.Called(ctx, tenantID, service, enabled, validationError)
	return args.Error(0)
}

func (m *TenantManagerMock) DeactivateTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *TenantManagerMock) GetSourceCredentials(ctx context.Context, tenantID string, service ServiceType) (CredentialMap, error) {
	args := m.Called(ctx, tenantID, service)
	if t := args.Get(0); t != nil {
		return t.(CredentialMap), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantManagerMock) GetDSNForTenant(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}
