package scheduler

import (
	"context"
	"fmt"
	"time"

	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	outboxPollInterval = 2 * time.Second
	outboxBatchSize    = 50
	deliverMaxRetry    = 10
)

// OutboxClaimer is the dispatcher's view of the notification outbox.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int, now time.Time) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// NotificationOutboxDispatcher polls the outbox and turns due records into
// delivery tasks.
type NotificationOutboxDispatcher struct {
	client taskEnqueuer
	queue  string
	repo   OutboxClaimer
	log    *logger.Logger
	now    func() time.Time
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &NotificationOutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
		repo:   repo,
		log:    log,
		now:    time.Now,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

// dispatch claims one batch and returns how many records were enqueued.
func (d *NotificationOutboxDispatcher) dispatch(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, outboxBatchSize, d.now().UTC())
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		task, err := NewNotificationDeliverTask(NotificationDeliverPayload{OutboxID: rec.ID.String()})
		if err != nil {
			d.handBack(ctx, rec.ID, err)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task,
			asynq.ProcessAt(rec.RunAt),
			asynq.Queue(d.queue),
			asynq.MaxRetry(deliverMaxRetry),
		)
		if err != nil {
			d.handBack(ctx, rec.ID, err)
			continue
		}
		enqueued++
	}
	return enqueued
}

func (d *NotificationOutboxDispatcher) handBack(ctx context.Context, id uuid.UUID, cause error) {
	msg := cause.Error()
	if err := d.repo.MarkPending(ctx, id, &msg); err != nil {
		d.log.Error("failed to return notification to outbox", "id", id, "error", err)
	}
}
