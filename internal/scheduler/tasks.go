package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRoutingEscalate = "routing.escalate"

const TaskRoutingExpire = "routing.expire"

const TaskNotificationDeliver = "notification.deliver"

type RoutingPhasePayload struct {
	LeadID string `json:"leadId"`
}

type NotificationDeliverPayload struct {
	OutboxID string `json:"outboxId"`
}

func NewRoutingEscalateTask(payload RoutingPhasePayload) (*asynq.Task, error) {
	return newRoutingPhaseTask(TaskRoutingEscalate, payload)
}

func NewRoutingExpireTask(payload RoutingPhasePayload) (*asynq.Task, error) {
	return newRoutingPhaseTask(TaskRoutingExpire, payload)
}

func newRoutingPhaseTask(typename string, payload RoutingPhasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}

func ParseRoutingPhasePayload(task *asynq.Task) (RoutingPhasePayload, error) {
	var payload RoutingPhasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RoutingPhasePayload{}, err
	}
	return payload, nil
}

func NewNotificationDeliverTask(payload NotificationDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, data), nil
}

func ParseNotificationDeliverPayload(task *asynq.Task) (NotificationDeliverPayload, error) {
	var payload NotificationDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationDeliverPayload{}, err
	}
	return payload, nil
}
