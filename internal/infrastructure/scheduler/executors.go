package scheduler

import (
	"context"
	"fmt"
	"time"

	appcontract "github.com/finadmin/backend/internal/application/contract"
	appfinance "github.com/finadmin/backend/internal/application/finance"
	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateRefresher stores the day's rate table
type RateRefresher interface {
	Refresh(ctx context.Context, force bool) (*appfx.RefreshResult, error)
}

// Reconciler recomputes settled totals and statuses of one tenant's entries
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID uuid.UUID) (*appfinance.ReconcileResult, error)
}

// BillingAdvancer bills the due contract items of one tenant
type BillingAdvancer interface {
	AdvanceDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*appcontract.AdvanceResult, error)
}

// RateRefreshExecutor runs JobTypeFXRateRefresh
type RateRefreshExecutor struct {
	refresher RateRefresher
	logger    *zap.Logger
}

// NewRateRefreshExecutor creates a new RateRefreshExecutor
func NewRateRefreshExecutor(refresher RateRefresher, logger *zap.Logger) *RateRefreshExecutor {
	return &RateRefreshExecutor{refresher: refresher, logger: logger}
}

// Execute refreshes today's rates unless they are already stored
func (e *RateRefreshExecutor) Execute(ctx context.Context, job *Job) error {
	res, err := e.refresher.Refresh(ctx, false)
	if err != nil {
		return fmt.Errorf("rate refresh: %w", err)
	}
	e.logger.Info("Rate refresh finished",
		append(job.fields(),
			zap.Time("rate_date", res.Date),
			zap.String("provider", res.Provider),
			zap.Int("rates", res.Count),
			zap.Bool("skipped", res.Skipped),
		)...,
	)
	return nil
}

// ReconcileExecutor runs JobTypeSettlementReconcile for one tenant
type ReconcileExecutor struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewReconcileExecutor creates a new ReconcileExecutor
func NewReconcileExecutor(reconciler Reconciler, logger *zap.Logger) *ReconcileExecutor {
	return &ReconcileExecutor{reconciler: reconciler, logger: logger}
}

// Execute reconciles the job's tenant. Entries that failed are retried with the whole job.
func (e *ReconcileExecutor) Execute(ctx context.Context, job *Job) error {
	if job.TenantID == nil {
		return ErrTenantRequired
	}
	res, err := e.reconciler.Reconcile(ctx, *job.TenantID)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	e.logger.Info("Reconcile finished",
		append(job.fields(),
			zap.Int("checked", res.Checked),
			zap.Int("changed", res.Changed),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)...,
	)
	if res.Failed > 0 {
		return fmt.Errorf("%w: %d entries", ErrReconcileIncomplete, res.Failed)
	}
	return nil
}

// BillingExecutor runs JobTypeContractBillingAdvance for one tenant
type BillingExecutor struct {
	advancer BillingAdvancer
	logger   *zap.Logger
}

// NewBillingExecutor creates a new BillingExecutor
func NewBillingExecutor(advancer BillingAdvancer, logger *zap.Logger) *BillingExecutor {
	return &BillingExecutor{advancer: advancer, logger: logger}
}

// Execute bills the tenant's due items as of the job's AsOf.
// Contracts that failed are retried with the whole job.
func (e *BillingExecutor) Execute(ctx context.Context, job *Job) error {
	if job.TenantID == nil {
		return ErrTenantRequired
	}
	res, err := e.advancer.AdvanceDue(ctx, *job.TenantID, job.AsOf)
	if err != nil {
		return fmt.Errorf("billing advance: %w", err)
	}
	e.logger.Info("Billing advance finished",
		append(job.fields(),
			zap.Int("contracts", res.Contracts),
			zap.Int("billed", len(res.Billed)),
			zap.Int("failed", res.Failed),
		)...,
	)
	if res.Failed > 0 {
		return fmt.Errorf("%w: %d contracts", ErrBillingIncomplete, res.Failed)
	}
	return nil
}

// NewDefaultDispatcher registers the three background executors
func NewDefaultDispatcher(refresher RateRefresher, reconciler Reconciler, advancer BillingAdvancer, logger *zap.Logger) *Dispatcher {
	d := NewDispatcher()
	d.Register(JobTypeFXRateRefresh, NewRateRefreshExecutor(refresher, logger))
	d.Register(JobTypeSettlementReconcile, NewReconcileExecutor(reconciler, logger))
	d.Register(JobTypeContractBillingAdvance, NewBillingExecutor(advancer, logger))
	return d
}
