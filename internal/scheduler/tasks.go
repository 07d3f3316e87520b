// Package scheduler runs the CRM sync on a schedule: an asynq periodic task
// and worker when Redis is configured, or an in-process ticker otherwise.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCRMSyncSweep = "crmsync.sweep"

const TaskCRMSyncClinic = "crmsync.clinic"

type ClinicSyncPayload struct {
	ClinicID string `json:"clinicId"`
}

func NewCRMSyncSweepTask() *asynq.Task {
	return asynq.NewTask(TaskCRMSyncSweep, nil)
}

func NewClinicSyncTask(payload ClinicSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCRMSyncClinic, data), nil
}

func ParseClinicSyncPayload(task *asynq.Task) (ClinicSyncPayload, error) {
	var payload ClinicSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ClinicSyncPayload{}, err
	}
	return payload, nil
}
