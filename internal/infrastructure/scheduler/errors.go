package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobType is returned when no executor is registered for a job type
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrTenantRequired is returned when a tenant-scoped job has no tenant
	ErrTenantRequired = errors.New("job requires a tenant id")

	// ErrBillingIncomplete is returned when some contracts of a billing run failed
	ErrBillingIncomplete = errors.New("billing run incomplete")

	// ErrReconcileIncomplete is returned when some entries of a reconcile run failed
	ErrReconcileIncomplete = errors.New("reconcile run incomplete")
)
