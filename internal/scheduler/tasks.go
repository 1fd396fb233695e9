package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReminderScan = "automation.reminder_scan"

const TaskFollowUpScan = "automation.followup_scan"

// ScanPayload carries the trigger provenance for an automation scan task.
type ScanPayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

func NewReminderScanTask(payload ScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderScan, data), nil
}

func NewFollowUpScanTask(payload ScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpScan, data), nil
}

func ParseScanPayload(task *asynq.Task) (ScanPayload, error) {
	var payload ScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScanPayload{}, err
	}
	return payload, nil
}
