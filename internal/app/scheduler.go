package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FollowupSweeper рассылает напоминания по простаивающим заявкам
type FollowupSweeper interface {
	SweepFollowups(ctx context.Context) (int, error)
}

// BookingSweeper завершает прошедшие занятия
type BookingSweeper interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	followups        FollowupSweeper
	bookings         BookingSweeper
	followupInterval time.Duration
	bookingInterval  time.Duration
	logger           *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(
	followups FollowupSweeper,
	bookings BookingSweeper,
	followupInterval time.Duration,
	bookingInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		followups:        followups,
		bookings:         bookings,
		followupInterval: followupInterval,
		bookingInterval:  bookingInterval,
		logger:           logger,
		stopChan:         make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("followup_interval", s.followupInterval),
		zap.Duration("booking_interval", s.bookingInterval),
	)

	s.runTask(ctx, "followup sweep", s.followupInterval, s.followups.SweepFollowups)
	s.runTask(ctx, "booking completion", s.bookingInterval, s.bookings.CompleteElapsed)
}

// Stop останавливает задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runTask выполняет job сразу и затем раз в interval
func (s *Scheduler) runTask(ctx context.Context, name string, interval time.Duration, job func(context.Context) (int, error)) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.runOnce(ctx, name, job)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx, name, job)
			case <-s.stopChan:
				s.logger.Info("Background task stopped", zap.String("task", name))
				return
			case <-ctx.Done():
				s.logger.Info("Background task cancelled", zap.String("task", name))
				return
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context, name string, job func(context.Context) (int, error)) {
	n, err := job(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Background task failed", zap.String("task", name), zap.Error(err))
		}
		return
	}

	if n > 0 {
		s.logger.Debug("Background task processed records", zap.String("task", name), zap.Int("count", n))
	}
}
