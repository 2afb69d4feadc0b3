package scheduler

import (
	"context"
	"errors"
	"fmt"

	"lead_routing_backend/internal/notification"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// RoutingSteps are the timed transitions the worker drives.
type RoutingSteps interface {
	Escalate(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error)
	Expire(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error)
}

type NotificationDeliverer interface {
	Deliver(ctx context.Context, outboxID uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	routing   RoutingSteps
	deliverer NotificationDeliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, routing RoutingSteps, deliverer NotificationDeliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		routing:   routing,
		deliverer: deliverer,
		log:       log,
	}

	mux.HandleFunc(TaskRoutingEscalate, w.handleRoutingEscalate)
	mux.HandleFunc(TaskRoutingExpire, w.handleRoutingExpire)
	mux.HandleFunc(TaskNotificationDeliver, w.handleNotificationDeliver)

	return w, nil
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

func (w *Worker) handleRoutingEscalate(ctx context.Context, task *asynq.Task) error {
	leadID, err := parseLeadID(task)
	if err != nil {
		return err
	}
	step, err := w.routing.Escalate(ctx, leadID)
	return w.finishStep(TaskRoutingEscalate, leadID, step, err)
}

func (w *Worker) handleRoutingExpire(ctx context.Context, task *asynq.Task) error {
	leadID, err := parseLeadID(task)
	if err != nil {
		return err
	}
	step, err := w.routing.Expire(ctx, leadID)
	return w.finishStep(TaskRoutingExpire, leadID, step, err)
}

// A lead that moved on or is claimed by an operator will not become ready on
// retry for the state-based cases, so those are dropped. Claim conflicts are
// transient and retried.
func (w *Worker) finishStep(task string, leadID uuid.UUID, step transport.RoutingStepResponse, err error) error {
	switch {
	case err == nil:
		w.log.Info("routing step ran", "task", task, "leadId", leadID,
			"state", step.RoutingState, "skipped", step.Skipped, "assigned", len(step.Assigned))
		return nil
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindPrecondition):
		w.log.Warn("routing step dropped", "task", task, "leadId", leadID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

func (w *Worker) handleNotificationDeliver(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationDeliverPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = w.deliverer.Deliver(ctx, outboxID)
	if errors.Is(err, notification.ErrExhausted) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func parseLeadID(task *asynq.Task) (uuid.UUID, error) {
	payload, err := ParseRoutingPhasePayload(task)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return leadID, nil
}
