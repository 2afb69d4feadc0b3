package scheduler

import (
	"context"
	"errors"
	"testing"

	"lead_routing_backend/internal/notification"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRouting struct {
	escalated []uuid.UUID
	expired   []uuid.UUID
	err       error
}

func (s *stubRouting) Escalate(_ context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error) {
	s.escalated = append(s.escalated, leadID)
	return transport.RoutingStepResponse{LeadID: leadID.String()}, s.err
}

func (s *stubRouting) Expire(_ context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error) {
	s.expired = append(s.expired, leadID)
	return transport.RoutingStepResponse{LeadID: leadID.String()}, s.err
}

type stubDeliverer struct {
	delivered []uuid.UUID
	err       error
}

func (s *stubDeliverer) Deliver(_ context.Context, id uuid.UUID) error {
	s.delivered = append(s.delivered, id)
	return s.err
}

func testWorker(routing RoutingSteps, deliverer NotificationDeliverer) *Worker {
	return &Worker{routing: routing, deliverer: deliverer, log: logger.Discard()}
}

func TestEscalateTaskRunsRoutingStep(t *testing.T) {
	routing := &stubRouting{}
	w := testWorker(routing, nil)
	lead := uuid.New()

	task, err := NewRoutingEscalateTask(RoutingPhasePayload{LeadID: lead.String()})
	require.NoError(t, err)
	require.NoError(t, w.handleRoutingEscalate(context.Background(), task))
	assert.Equal(t, []uuid.UUID{lead}, routing.escalated)

	task, err = NewRoutingExpireTask(RoutingPhasePayload{LeadID: lead.String()})
	require.NoError(t, err)
	require.NoError(t, w.handleRoutingExpire(context.Background(), task))
	assert.Equal(t, []uuid.UUID{lead}, routing.expired)
}

func TestRoutingStepErrorsAreClassified(t *testing.T) {
	lead := uuid.New()
	task, err := NewRoutingExpireTask(RoutingPhasePayload{LeadID: lead.String()})
	require.NoError(t, err)

	cases := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"missing lead", apperr.NotFound("lead not found"), true},
		{"wrong state", apperr.Precondition("lead is not routing"), true},
		{"claimed elsewhere", apperr.Conflict("lead is being routed"), false},
		{"database", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := testWorker(&stubRouting{err: tc.err}, nil).handleRoutingExpire(context.Background(), task)
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestMalformedPayloadIsNotRetried(t *testing.T) {
	w := testWorker(&stubRouting{}, &stubDeliverer{})

	err := w.handleRoutingEscalate(context.Background(), asynq.NewTask(TaskRoutingEscalate, []byte(`{"leadId":"nope"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.handleNotificationDeliver(context.Background(), asynq.NewTask(TaskNotificationDeliver, []byte(`not json`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDeliverTaskStopsRetryingWhenExhausted(t *testing.T) {
	id := uuid.New()
	task, err := NewNotificationDeliverTask(NotificationDeliverPayload{OutboxID: id.String()})
	require.NoError(t, err)

	ok := &stubDeliverer{}
	require.NoError(t, testWorker(nil, ok).handleNotificationDeliver(context.Background(), task))
	assert.Equal(t, []uuid.UUID{id}, ok.delivered)

	transient := &stubDeliverer{err: errors.New("stream unavailable")}
	err = testWorker(nil, transient).handleNotificationDeliver(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	exhausted := &stubDeliverer{err: notification.ErrExhausted}
	err = testWorker(nil, exhausted).handleNotificationDeliver(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
