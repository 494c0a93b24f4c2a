package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/finadmin/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants a per-tenant job fans out to
type TenantProvider interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TenantProviderFunc adapts a function to TenantProvider
type TenantProviderFunc func(ctx context.Context) ([]uuid.UUID, error)

// ListTenantIDs calls f
func (f TenantProviderFunc) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f(ctx)
}

// DailySchedule fires JobType once a day at Hour:Minute.
// With Tenants set, one job is submitted per tenant; otherwise a single global job.
type DailySchedule struct {
	JobType JobType
	Hour    int
	Minute  int
	Tenants TenantProvider
}

// DailySchedules builds the refresh, reconcile and billing schedules from configuration
func DailySchedules(cfg config.SchedulerConfig, ledgerTenants, contractTenants TenantProvider) []DailySchedule {
	return []DailySchedule{
		{JobType: JobTypeFXRateRefresh, Hour: cfg.FXRefreshHour, Minute: cfg.FXRefreshMinute},
		{JobType: JobTypeSettlementReconcile, Hour: cfg.ReconcileHour, Minute: cfg.ReconcileMinute, Tenants: ledgerTenants},
		{JobType: JobTypeContractBillingAdvance, Hour: cfg.BillingHour, Minute: cfg.BillingMinute, Tenants: contractTenants},
	}
}

// CronTrigger submits jobs to the scheduler on their daily schedules
type CronTrigger struct {
	schedules     []DailySchedule
	scheduler     *Scheduler
	checkInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   map[JobType]string
}

// NewCronTrigger creates a new cron trigger checking the clock every checkInterval
func NewCronTrigger(schedules []DailySchedule, scheduler *Scheduler, checkInterval time.Duration, logger *zap.Logger) *CronTrigger {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &CronTrigger{
		schedules:     schedules,
		scheduler:     scheduler,
		checkInterval: checkInterval,
		logger:        logger.Named("cron"),
		now:           time.Now,
		lastRun:       make(map[JobType]string),
	}
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("schedules", len(c.schedules)),
		zap.Duration("check_interval", c.checkInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires every schedule whose time has come and that has not run today
func (c *CronTrigger) checkAndTrigger(ctx context.Context) {
	now := c.now()
	today := now.Format("2006-01-02")

	for _, s := range c.schedules {
		if now.Hour() != s.Hour || now.Minute() != s.Minute {
			continue
		}
		c.mu.Lock()
		if c.lastRun[s.JobType] == today {
			c.mu.Unlock()
			continue
		}
		c.lastRun[s.JobType] = today
		c.mu.Unlock()

		c.logger.Info("Triggering scheduled job", zap.String("job_type", string(s.JobType)))
		c.trigger(ctx, s, now)
	}
}

func (c *CronTrigger) trigger(ctx context.Context, s DailySchedule, asOf time.Time) {
	if s.Tenants == nil {
		if err := c.scheduler.Schedule(s.JobType, nil, asOf); err != nil {
			c.logger.Error("Failed to schedule job", zap.String("job_type", string(s.JobType)), zap.Error(err))
		}
		return
	}

	tenantIDs, err := s.Tenants.ListTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list tenants", zap.String("job_type", string(s.JobType)), zap.Error(err))
		return
	}
	for _, tenantID := range tenantIDs {
		tid := tenantID
		if err := c.scheduler.Schedule(s.JobType, &tid, asOf); err != nil {
			c.logger.Error("Failed to schedule job for tenant",
				zap.String("job_type", string(s.JobType)),
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// TriggerNow submits jobType immediately, fanning out over tenants when tenantID is nil
// and the schedule is per tenant
func (c *CronTrigger) TriggerNow(ctx context.Context, jobType JobType, tenantID *uuid.UUID) error {
	asOf := c.now()
	if tenantID != nil {
		return c.scheduler.Schedule(jobType, tenantID, asOf)
	}
	for _, s := range c.schedules {
		if s.JobType == jobType {
			c.trigger(ctx, s, asOf)
			return nil
		}
	}
	return ErrUnknownJobType
}
