// Package scheduler wires up the cron job that periodically prunes stale
// listings from the job catalog.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes catalog listings older than the cutoff and reports how many
// rows went away.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler wraps robfig/cron and manages the retention loop.
type Scheduler struct {
	cron          *cron.Cron
	pruner        Pruner
	retentionDays int
	spec          string // cron spec, e.g. "@every 24h"
	logger        *zap.Logger
}

// New creates a Scheduler that prunes listings older than retentionDays,
// firing every intervalHours hours.
func New(pruner Pruner, retentionDays, intervalHours int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:          cron.New(),
		pruner:        pruner,
		retentionDays: retentionDays,
		spec:          fmt.Sprintf("@every %dh", intervalHours),
		logger:        logger,
	}
}

// Start registers the job and starts the scheduler. Also runs one prune
// immediately so a long-stopped instance catches up without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runPrune(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retention cron started",
		zap.String("spec", s.spec),
		zap.Int("retention_days", s.retentionDays),
	)

	go s.runPrune(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("retention cron stopped")
}

func (s *Scheduler) runPrune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention prune failed", zap.Error(err))
		return
	}
	s.logger.Info("retention prune complete",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
}
