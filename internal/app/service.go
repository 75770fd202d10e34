// Package service wires the rating engine to report ingestion, the period
// close loop and published standings.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	reportqueue "github.com/okian/glicko2/internal/adapters/mq/queue"
	workerpool "github.com/okian/glicko2/internal/adapters/mq/worker"
	repository "github.com/okian/glicko2/internal/adapters/repository"
	"github.com/okian/glicko2/internal/config"
	"github.com/okian/glicko2/internal/domain/dedupe"
	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/logger"
	"github.com/okian/glicko2/pkg/metrics"
)

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started     bool  `json:"started"`
	Players     int   `json:"players"`
	QueueLength int   `json:"queue_length"`
	Workers     int   `json:"workers"`
	Applied     int64 `json:"applied"`
	Failed      int64 `json:"failed"`
	Deduped     int64 `json:"deduped"`
	Ranked      int   `json:"ranked"`
}

// Service owns one engine and everything that feeds and reads it.
type Service struct {
	mu sync.Mutex

	cfg        *config.Config
	engineOpts []engine.Option
	now        func() time.Time

	// Core components
	engine      *engine.Engine
	deduper     dedupe.Deduper
	reportQueue *reportqueue.InMemoryQueue
	workerPool  *workerpool.Pool
	standings   *repository.SnapshotStore

	// State
	started  bool
	stopped  bool
	stopLoop context.CancelFunc
	stopWork context.CancelFunc
	loopDone chan struct{}

	logger logger.Logger
}

// New validates cfg and builds the service. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	engineOpts := append([]engine.Option{
		engine.WithMaxIterations(cfg.MaxIterations),
		engine.WithClock(s.now),
		engine.WithLogger(s.logger.Named("engine")),
	}, s.engineOpts...)
	eng, err := engine.New(cfg.Settings(), engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	s.engine = eng
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.reportQueue = reportqueue.NewInMemoryQueue(reportqueue.WithCapacity(cfg.QueueSize))
	s.workerPool = workerpool.NewPool(cfg.WorkerCount, s.reportQueue, s.engine,
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.standings = repository.NewSnapshotStore()
	return s, nil
}

// Start runs the workers and, when configured, the close loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	// Workers outlive the caller's context; Stop ends them by closing the
	// queue, then cancels them once the wait ends.
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWork = stopWork
	s.workerPool.Start(workCtx)

	loopCtx, stopLoop := context.WithCancel(workCtx)
	s.stopLoop = stopLoop
	s.loopDone = make(chan struct{})
	if interval := s.cfg.CloseInterval(); interval > 0 {
		go s.closeLoop(loopCtx, interval)
	} else {
		close(s.loopDone)
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("dedupe_size", s.cfg.DedupeSize),
		logger.Duration("close_interval", s.cfg.CloseInterval()),
		logger.Time("epoch", s.engine.Epoch()),
	)
	return nil
}

func (s *Service) closeLoop(ctx context.Context, interval time.Duration) {
	defer close(s.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CloseAndPublish(ctx, s.now()); err != nil {
				s.logger.Warn(ctx, "period close failed", logger.Error(err))
			}
		}
	}
}

// CloseAndPublish seals every period that ended by t and publishes standings
// projected to t.
func (s *Service) CloseAndPublish(ctx context.Context, t time.Time) (engine.CloseReport, error) {
	report, err := s.engine.MaybeCloseRatingPeriodsAt(ctx, t)
	if err != nil {
		return report, err
	}
	if err := s.Publish(ctx, t); err != nil {
		return report, err
	}
	return report, nil
}

// Publish projects every player to t and swaps in new standings.
func (s *Service) Publish(ctx context.Context, t time.Time) error {
	players, err := s.engine.Players(ctx, t)
	if err != nil {
		return fmt.Errorf("project players: %w", err)
	}
	return s.standings.Publish(ctx, t, players)
}

// Stop stops the close loop, closes the queue and waits for the workers to
// apply what is left in it. It gives up when ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	s.logger.Info(ctx, "stopping rating service...")

	_ = s.reportQueue.Close()
	if !s.started {
		return nil
	}

	s.stopLoop()
	<-s.loopDone

	err := s.workerPool.Wait(ctx)
	s.stopWork()
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "rating service stopped",
		logger.Int64("applied", s.workerPool.Applied()),
		logger.Int64("failed", s.workerPool.Failed()),
	)
	return nil
}

// Submit queues a report for the workers. A report without an ID gets a
// random one. duplicate is true when the ID was already submitted; the
// report is then dropped without error.
func (s *Service) Submit(ctx context.Context, r model.MatchReport) (duplicate bool, err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return false, err
	}

	if s.deduper.SeenAndRecord(ctx, r.ID) {
		metrics.RecordReportDuplicate()
		s.logger.Debug(ctx, "duplicate report, skipping", logger.String("report_id", r.ID))
		return true, nil
	}

	if err := s.reportQueue.Enqueue(ctx, r); err != nil {
		// Let the sender retry under the same ID.
		s.deduper.Unrecord(ctx, r.ID)
		switch {
		case errors.Is(err, reportqueue.ErrFull):
			return false, ErrBackpressure
		case errors.Is(err, reportqueue.ErrClosed):
			return false, ErrStopped
		default:
			return false, fmt.Errorf("enqueue report %s: %w", r.ID, err)
		}
	}

	metrics.RecordReportIngested()
	s.logger.Debug(ctx, "report queued",
		logger.String("report_id", r.ID),
		logger.Any("player_a", r.PlayerA),
		logger.Any("player_b", r.PlayerB),
		logger.String("result", r.Result.String()),
		logger.Time("at", r.At),
	)
	return false, nil
}

// Engine returns the rating engine, for player registration and queries.
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// Standings returns the standings store the close loop publishes to.
func (s *Service) Standings() repository.Store {
	return s.standings
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	started := s.started && !s.stopped
	s.mu.Unlock()

	return Stats{
		Started:     started,
		Players:     len(s.engine.PlayerHandles()),
		QueueLength: s.reportQueue.Len(ctx),
		Workers:     s.workerPool.Size(),
		Applied:     s.workerPool.Applied(),
		Failed:      s.workerPool.Failed(),
		Deduped:     s.deduper.Size(),
		Ranked:      s.standings.Count(ctx),
	}
}
