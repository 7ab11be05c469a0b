package jobs

import (
	"context"
	"time"
)

const DefaultMinimumJobIntervalSeconds = 5

// Job is one periodic task run by the scheduler. Multi-tenant jobs are executed once per tenant
// with the tenant saved in the context; single-tenant jobs run once per tick.
type Job interface {
	Execute(context.Context) error
	GetInterval() time.Duration
	GetName() string
	IsJobMultiTenant() bool
}
