package service

import (
	"context"
	"time"

	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// SweepRecorder counts removed state records.
type SweepRecorder interface {
	AddSweptStates(n int64)
}

// StateSweeper periodically deletes expired OAuth state records.
type StateSweeper struct {
	store    model.OAuthStateSweeper
	interval time.Duration
	recorder SweepRecorder
	logger   *logger.Logger
	now      func() time.Time
}

func NewStateSweeper(store model.OAuthStateSweeper, interval time.Duration, recorder SweepRecorder, logger *logger.Logger) *StateSweeper {
	return &StateSweeper{
		store:    store,
		interval: interval,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is done.
func (s *StateSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("State sweeper: sweep failed",
					"error", err.Error())
			}
		}
	}
}

// Sweep removes records that expired before now.
func (s *StateSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	if n > 0 {
		if s.recorder != nil {
			s.recorder.AddSweptStates(n)
		}
		s.logger.Debug("State sweeper: removed expired states",
			"count", n)
	}

	return n, nil
}
