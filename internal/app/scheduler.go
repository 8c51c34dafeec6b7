package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// holdReconciler сверочный проход по живым hold'ам
type holdReconciler interface {
	ExpireStale(ctx context.Context) error
}

// refDataRefresher обновление кэша справочников
type refDataRefresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами: страховочный проход по
// hold'ам, чьи таймеры потерялись, и периодическое обновление
// справочников из хранилища
type Scheduler struct {
	holds         holdReconciler
	refData       refDataRefresher
	sweepInterval time.Duration
	cacheInterval time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	holds holdReconciler,
	refData refDataRefresher,
	sweepInterval time.Duration,
	cacheInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		holds:         holds,
		refData:       refData,
		sweepInterval: sweepInterval,
		cacheInterval: cacheInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runSweepTask(ctx)
	go s.runRefreshTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runSweepTask периодически принудительно истекает зависшие hold'ы.
// Ограничивает время жизни hold'а с потерянным таймером интервалом
// прохода (например, после рестарта процесса).
func (s *Scheduler) runSweepTask(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.holds.ExpireStale(ctx); err != nil {
				s.logger.Error("Hold reconciliation sweep failed", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Hold reconciliation task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Hold reconciliation task cancelled")
			return
		}
	}
}

// runRefreshTask периодически перечитывает справочники из хранилища
func (s *Scheduler) runRefreshTask(ctx context.Context) {
	ticker := time.NewTicker(s.cacheInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.refData.Refresh(ctx); err != nil {
				s.logger.Error("Failed to refresh reference data", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Reference data refresh task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reference data refresh task cancelled")
			return
		}
	}
}
