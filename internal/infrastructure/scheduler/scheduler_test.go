package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appcontract "github.com/finadmin/backend/internal/application/contract"
	appfinance "github.com/finadmin/backend/internal/application/finance"
	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobTypeFXRateRefresh, nil, time.Now(), 2)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("timeout")
	assert.Equal(t, "timeout", job.Error)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.NotNil(t, job.NextRetryAt)
	assert.Empty(t, job.Error)

	job.Start()
	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.False(t, job.ShouldRetry())
}

func TestJob_ShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     JobStatus
		retryCount int
		maxRetries int
		expected   bool
	}{
		{"Failed with retries available", JobStatusFailed, 0, 3, true},
		{"Failed max retries reached", JobStatusFailed, 3, 3, false},
		{"Success should not retry", JobStatusSuccess, 0, 3, false},
		{"Running should not retry", JobStatusRunning, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.status, RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			assert.Equal(t, tt.expected, job.ShouldRetry())
		})
	}
}

func TestDispatcher_UnknownType(t *testing.T) {
	d := NewDispatcher()
	err := d.Execute(context.Background(), NewJob(JobTypeFXRateRefresh, nil, time.Now(), 0))
	assert.ErrorIs(t, err, ErrUnknownJobType)
}

func TestScheduler_RunsAndRetries(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	executor := ExecutorFunc(func(ctx context.Context, job *Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	s := NewScheduler(Config{
		MaxConcurrentJobs: 1,
		JobTimeout:        time.Second,
		RetryAttempts:     1,
		RetryDelay:        time.Millisecond,
		QueueSize:         4,
	}, executor, zap.NewNop())

	assert.ErrorIs(t, s.Schedule(JobTypeFXRateRefresh, nil, time.Now()), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Schedule(JobTypeFXRateRefresh, nil, time.Now()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(2), calls.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
}

func TestScheduler_QueueFull(t *testing.T) {
	s := NewScheduler(Config{MaxConcurrentJobs: 1, QueueSize: 1, JobTimeout: time.Second}, ExecutorFunc(func(ctx context.Context, job *Job) error {
		<-ctx.Done()
		return ctx.Err()
	}), zap.NewNop())
	// mark running without workers so nothing drains the queue
	s.isRunning = true

	require.NoError(t, s.Schedule(JobTypeFXRateRefresh, nil, time.Now()))
	assert.ErrorIs(t, s.Schedule(JobTypeFXRateRefresh, nil, time.Now()), ErrJobQueueFull)
}

type stubRefresher struct {
	forced []bool
	err    error
}

func (r *stubRefresher) Refresh(_ context.Context, force bool) (*appfx.RefreshResult, error) {
	r.forced = append(r.forced, force)
	if r.err != nil {
		return nil, r.err
	}
	return &appfx.RefreshResult{Date: time.Now(), Provider: "exchangerate-api", Count: 4}, nil
}

type stubReconciler struct {
	tenants []uuid.UUID
	failed  int
}

func (r *stubReconciler) Reconcile(_ context.Context, tenantID uuid.UUID) (*appfinance.ReconcileResult, error) {
	r.tenants = append(r.tenants, tenantID)
	return &appfinance.ReconcileResult{Tenants: 1, Checked: 3, Failed: r.failed}, nil
}

type stubAdvancer struct {
	failed int
	asOf   time.Time
}

func (a *stubAdvancer) AdvanceDue(_ context.Context, _ uuid.UUID, asOf time.Time) (*appcontract.AdvanceResult, error) {
	a.asOf = asOf
	return &appcontract.AdvanceResult{Contracts: 2, Failed: a.failed}, nil
}

func TestExecutors(t *testing.T) {
	refresher := &stubRefresher{}
	reconciler := &stubReconciler{}
	advancer := &stubAdvancer{}
	d := NewDefaultDispatcher(refresher, reconciler, advancer, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	asOf := time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC)

	require.NoError(t, d.Execute(ctx, NewJob(JobTypeFXRateRefresh, nil, asOf, 0)))
	assert.Equal(t, []bool{false}, refresher.forced)

	assert.ErrorIs(t, d.Execute(ctx, NewJob(JobTypeSettlementReconcile, nil, asOf, 0)), ErrTenantRequired)
	require.NoError(t, d.Execute(ctx, NewJob(JobTypeSettlementReconcile, &tenantID, asOf, 0)))
	assert.Equal(t, []uuid.UUID{tenantID}, reconciler.tenants)

	reconciler.failed = 1
	assert.ErrorIs(t, d.Execute(ctx, NewJob(JobTypeSettlementReconcile, &tenantID, asOf, 0)), ErrReconcileIncomplete)

	require.NoError(t, d.Execute(ctx, NewJob(JobTypeContractBillingAdvance, &tenantID, asOf, 0)))
	assert.True(t, advancer.asOf.Equal(asOf))

	advancer.failed = 1
	assert.ErrorIs(t, d.Execute(ctx, NewJob(JobTypeContractBillingAdvance, &tenantID, asOf, 0)), ErrBillingIncomplete)

	refresher.err = errors.New("feed down")
	assert.Error(t, d.Execute(ctx, NewJob(JobTypeFXRateRefresh, nil, asOf, 0)))
}

type capturingExecutor struct {
	mu   sync.Mutex
	jobs []*Job
}

func (e *capturingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job)
	return nil
}

func TestCronTrigger_FiresOncePerDay(t *testing.T) {
	s := NewScheduler(Config{MaxConcurrentJobs: 1, QueueSize: 10, JobTimeout: time.Second}, &capturingExecutor{}, zap.NewNop())
	s.isRunning = true

	tenants := []uuid.UUID{uuid.New(), uuid.New()}
	schedules := []DailySchedule{
		{JobType: JobTypeFXRateRefresh, Hour: 6, Minute: 0},
		{JobType: JobTypeSettlementReconcile, Hour: 6, Minute: 0, Tenants: TenantProviderFunc(func(context.Context) ([]uuid.UUID, error) {
			return tenants, nil
		})},
		{JobType: JobTypeContractBillingAdvance, Hour: 7, Minute: 0},
	}
	c := NewCronTrigger(schedules, s, time.Minute, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 5, 1, 6, 0, 30, 0, time.UTC) }

	c.checkAndTrigger(context.Background())
	c.checkAndTrigger(context.Background())

	// one global refresh plus one reconcile per tenant
	assert.Len(t, s.jobs, 3)
	first := <-s.jobs
	assert.Equal(t, JobTypeFXRateRefresh, first.Type)
	assert.Nil(t, first.TenantID)
	second := <-s.jobs
	assert.Equal(t, JobTypeSettlementReconcile, second.Type)
	require.NotNil(t, second.TenantID)
	assert.Equal(t, tenants[0], *second.TenantID)
}

func TestCronTrigger_TriggerNow(t *testing.T) {
	s := NewScheduler(Config{MaxConcurrentJobs: 1, QueueSize: 10, JobTimeout: time.Second}, &capturingExecutor{}, zap.NewNop())
	s.isRunning = true
	c := NewCronTrigger([]DailySchedule{{JobType: JobTypeFXRateRefresh}}, s, time.Minute, zap.NewNop())

	require.NoError(t, c.TriggerNow(context.Background(), JobTypeFXRateRefresh, nil))
	assert.ErrorIs(t, c.TriggerNow(context.Background(), JobTypeSettlementReconcile, nil), ErrUnknownJobType)

	tenantID := uuid.New()
	require.NoError(t, c.TriggerNow(context.Background(), JobTypeSettlementReconcile, &tenantID))
	assert.Len(t, s.jobs, 2)
}
