package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskQCVerifyAggregates = "production.qc.verify_aggregates"

const TaskQCSweepAggregates = "production.qc.sweep_aggregates"

type QCVerifyAggregatesPayload struct {
	StageID string `json:"stageId"`
}

func NewQCVerifyAggregatesTask(payload QCVerifyAggregatesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQCVerifyAggregates, data), nil
}

func ParseQCVerifyAggregatesPayload(task *asynq.Task) (QCVerifyAggregatesPayload, error) {
	var payload QCVerifyAggregatesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QCVerifyAggregatesPayload{}, err
	}
	return payload, nil
}

func NewQCSweepAggregatesTask() *asynq.Task {
	return asynq.NewTask(TaskQCSweepAggregates, nil)
}
