package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/jobs"
)

const dashboardRefreshJob = "dashboard.refresh"

type dashboardRefresher interface {
	Refresh(ctx context.Context, date models.Date) (int, error)
}

// RefreshServiceParams groups constructor dependencies.
type RefreshServiceParams struct {
	Dashboard  dashboardRefresher
	Metrics    *MetricsService
	Logger     *zap.Logger
	Interval   time.Duration
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Location   *time.Location
	Now        func() time.Time
}

// RefreshService recomputes the operations dashboard in the background, on a ticker and on demand.
type RefreshService struct {
	dashboard dashboardRefresher
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration
	clock     studioClock
	queue     *jobs.Queue

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefreshService wires the refresh job handler onto a worker queue.
func NewRefreshService(params RefreshServiceParams) *RefreshService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RefreshService{
		dashboard: params.Dashboard,
		metrics:   params.Metrics,
		logger:    logger,
		interval:  params.Interval,
		clock:     newStudioClock(params.Now, params.Location),
	}
	s.queue = jobs.NewQueue("dashboard-refresh", s.handle, jobs.QueueConfig{
		Workers:    params.Workers,
		MaxRetries: params.Retries,
		RetryDelay: params.RetryDelay,
		Logger:     logger,
		OnResult: func(_ jobs.Job, err error) {
			s.metrics.RecordDashboardRefresh(err == nil)
		},
	})
	return s
}

// Start launches the workers and, when an interval is configured, the ticker.
func (s *RefreshService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)
	s.done = make(chan struct{})
	go s.tick(ctx, s.done)
}

// Stop halts the ticker and drains the workers.
func (s *RefreshService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.queue.Stop()
}

// Trigger enqueues a refresh for date (today when missing) and returns the job id.
func (s *RefreshService) Trigger(date models.Date) (string, models.Date, error) {
	date = s.clock.dateOrToday(date)
	id := uuid.NewString()
	err := s.queue.TryEnqueue(jobs.Job{ID: id, Type: dashboardRefreshJob, Payload: date})
	switch {
	case err == nil:
		return id, date, nil
	case errors.Is(err, jobs.ErrQueueFull):
		return "", date, appErrors.Clone(appErrors.ErrServiceUnavailable, "refresh queue is busy, try again shortly")
	default:
		return "", date, appErrors.WrapAs(appErrors.ErrServiceUnavailable, err, "refresh worker not running")
	}
}

func (s *RefreshService) tick(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.Trigger(models.Date{}); err != nil {
				s.logger.Warn("scheduled dashboard refresh skipped", zap.Error(err))
			}
		}
	}
}

func (s *RefreshService) handle(ctx context.Context, job jobs.Job) error {
	date, ok := job.Payload.(models.Date)
	if !ok {
		return fmt.Errorf("unexpected refresh payload %T", job.Payload)
	}
	start := time.Now()
	classes, err := s.dashboard.Refresh(ctx, date)
	if err != nil {
		return err
	}
	s.logger.Info("dashboard refreshed",
		zap.String("job_id", job.ID),
		zap.String("date", date.String()),
		zap.Int("classes", classes),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
