package services

import (
	"errors"
	"fmt"

	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

// ErrJobAlreadyInFlight is returned by intake when a non-terminal job for the same tenant
// already overlaps the requested data types and date range.
var ErrJobAlreadyInFlight = errors.New("an overlapping ingestion job is already in flight")

// ServiceDisabledError is returned by intake when a requested data type depends on an external
// service the tenant has disabled. No job row or queue message exists when it is returned.
type ServiceDisabledError struct {
	Service tenant.ServiceType
	Reason  string
}

func (e *ServiceDisabledError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %s is disabled for this tenant: %s", e.Service, e.Reason)
	}
	return fmt.Sprintf("service %s is disabled for this tenant", e.Service)
}
