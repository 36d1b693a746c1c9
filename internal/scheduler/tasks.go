package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReminderSweep = "leads.reminder_sweep"

const TaskRoutePool = "leads.route_pool"

// ReminderSweepPayload is empty; the worker sweeps at the time it runs.
type ReminderSweepPayload struct{}

type RoutePoolPayload struct {
	// Tier limits routing to one tier; empty routes every tier.
	Tier string `json:"tier,omitempty"`
}

func NewReminderSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(ReminderSweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderSweep, data), nil
}

func NewRoutePoolTask(payload RoutePoolPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoutePool, data), nil
}

func ParseRoutePoolPayload(task *asynq.Task) (RoutePoolPayload, error) {
	var payload RoutePoolPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RoutePoolPayload{}, err
	}
	return payload, nil
}
