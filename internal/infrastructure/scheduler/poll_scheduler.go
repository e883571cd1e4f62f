package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appsync "github.com/sellerdesk/backend/internal/application/sync"
)

// ErrSchedulerAlreadyRunning indicates Start was called twice
var ErrSchedulerAlreadyRunning = errors.New("scheduler: already running")

// PollRunner is the slice of the poll service the scheduler depends on
type PollRunner interface {
	Run(ctx context.Context, mode appsync.PollMode) (*appsync.PollRunSummary, error)
}

// PollScheduler triggers a full poll run on a fixed interval. Runs execute
// sequentially on the scheduling goroutine, so ticks that fire during a
// long run coalesce instead of stacking.
type PollScheduler struct {
	runner   PollRunner
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPollScheduler creates a scheduler over the poll runner
func NewPollScheduler(runner PollRunner, interval time.Duration, logger *zap.Logger) *PollScheduler {
	return &PollScheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the scheduling loop in a background goroutine
func (s *PollScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Poll scheduler started", zap.Duration("interval", s.interval))

	go s.loop(ctx)
	return nil
}

// Stop shuts the loop down and waits for an in-flight run to finish
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("Poll scheduler stopped")
}

func (s *PollScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PollScheduler) tick(ctx context.Context) {
	summary, err := s.runner.Run(ctx, appsync.PollFull)
	if err != nil {
		s.logger.Error("Scheduled poll failed to run", zap.Error(err))
		return
	}
	if !summary.Succeeded() {
		s.logger.Warn("Scheduled poll finished with seller failures",
			zap.String("run_id", summary.RunID.String()),
			zap.Int("failed_sellers", summary.FailedSellers),
		)
	}
}
