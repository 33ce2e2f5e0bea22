package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"mfg_portal_backend/platform/config"
	"mfg_portal_backend/platform/logger"
)

// AggregateVerifier is the production service surface the worker needs.
type AggregateVerifier interface {
	VerifyAggregates(ctx context.Context, stageID uuid.UUID) error
	SweepAggregates(ctx context.Context) error
}

// Worker consumes QC verification tasks from the asynq queue.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	verifier AggregateVerifier
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, verifier AggregateVerifier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		verifier: verifier,
		log:      log,
	}

	mux.HandleFunc(TaskQCVerifyAggregates, w.handleVerifyAggregates)
	mux.HandleFunc(TaskQCSweepAggregates, w.handleSweepAggregates)

	return w, nil
}

func (w *Worker) handleVerifyAggregates(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseQCVerifyAggregatesPayload(task)
	if err != nil {
		return err
	}

	stageID, err := uuid.Parse(payload.StageID)
	if err != nil {
		return err
	}

	if err := w.verifier.VerifyAggregates(ctx, stageID); err != nil {
		return err
	}

	w.log.Debug("qc aggregates verified", "stage_id", stageID)
	return nil
}

func (w *Worker) handleSweepAggregates(ctx context.Context, task *asynq.Task) error {
	if err := w.verifier.SweepAggregates(ctx); err != nil {
		return err
	}

	w.log.Info("qc aggregate sweep completed")
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
