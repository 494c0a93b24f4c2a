package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finadmin/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobType identifies the background work a job performs
type JobType string

const (
	JobTypeFXRateRefresh          JobType = "FX_RATE_REFRESH"
	JobTypeSettlementReconcile    JobType = "SETTLEMENT_RECONCILE"
	JobTypeContractBillingAdvance JobType = "CONTRACT_BILLING_ADVANCE"
)

// Job is one unit of background work
type Job struct {
	ID          uuid.UUID
	Type        JobType
	TenantID    *uuid.UUID // nil for global jobs such as the rate refresh
	AsOf        time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a pending job
func NewJob(jobType JobType, tenantID *uuid.UUID, asOf time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		TenantID:   tenantID,
		AsOf:       asOf,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending after delay
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.Error = ""
}

func (j *Job) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("job_type", string(j.Type)),
	}
	if j.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", j.TenantID.String()))
	}
	return fields
}

// JobExecutor executes jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// ExecutorFunc adapts a function to JobExecutor
type ExecutorFunc func(ctx context.Context, job *Job) error

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Dispatcher routes jobs to the executor registered for their type
type Dispatcher struct {
	mu        sync.RWMutex
	executors map[JobType]JobExecutor
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{executors: make(map[JobType]JobExecutor)}
}

// Register binds executor to jobType, replacing any previous one
func (d *Dispatcher) Register(jobType JobType, executor JobExecutor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executors[jobType] = executor
}

// Execute runs the executor for job.Type
func (d *Dispatcher) Execute(ctx context.Context, job *Job) error {
	d.mu.RLock()
	executor, ok := d.executors[job.Type]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	return executor.Execute(ctx, job)
}

// Config holds worker pool settings
type Config struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	QueueSize         int
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
		QueueSize:         100,
	}
}

// ConfigFrom maps the application configuration onto the worker pool settings
func ConfigFrom(cfg config.SchedulerConfig) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.MaxConcurrentJobs > 0 {
		c.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		c.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		c.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		c.RetryDelay = cfg.RetryDelay
	}
	return c
}

// Scheduler runs submitted jobs on a fixed pool of workers
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	return &Scheduler{
		config:   cfg,
		executor: executor,
		logger:   logger.Named("scheduler"),
		jobs:     make(chan *Job, cfg.QueueSize),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether workers are accepting jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Submit enqueues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted", job.fields()...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Schedule creates and submits a job
func (s *Scheduler) Schedule(jobType JobType, tenantID *uuid.UUID, asOf time.Time) error {
	return s.Submit(NewJob(jobType, tenantID, asOf, s.config.RetryAttempts))
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil {
		wait := time.Until(*job.NextRetryAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}

	log := s.logger.With(append(job.fields(), zap.Int("worker_id", workerID))...)
	job.Start()
	log.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		log.Error("Job failed", zap.Error(err))

		if job.ShouldRetry() && ctx.Err() == nil {
			job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			select {
			case s.jobs <- job:
			default:
				log.Warn("Failed to re-queue job for retry")
			}
		}
		return
	}

	job.Complete()
	log.Info("Job completed successfully")
}
