package scheduler

import (
	"context"
	"time"

	"mfg_portal_backend/platform/logger"
)

// Sweeper periodically enqueues a full QC aggregate sweep task.
type Sweeper struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(client *Client, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{
		client:   client,
		interval: interval,
		log:      log,
	}
}

// Run enqueues a sweep task on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.client.EnqueueSweep(ctx); err != nil {
				s.log.Warn("failed to enqueue qc sweep", "error", err)
			}
		}
	}
}
