// Package scheduler runs the background jobs: periodic health recomputes and
// the stale lead sweep, delivered through asynq.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskHealthRecompute = "crm.health.recompute"

const TaskHealthSweep = "crm.health.sweep"

const TaskStaleSweep = "crm.leads.stale_sweep"

// HealthRecomputePayload recomputes one client's health score.
type HealthRecomputePayload struct {
	TenantID string `json:"tenantId"`
	ClientID string `json:"clientId"`
}

// HealthSweepPayload recomputes every client of a tenant. An empty TenantID
// sweeps all tenants.
type HealthSweepPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

// StaleSweepPayload flags stale leads for a tenant. An empty TenantID sweeps
// all tenants.
type StaleSweepPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

func NewHealthRecomputeTask(payload HealthRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHealthRecompute, data), nil
}

func ParseHealthRecomputePayload(task *asynq.Task) (HealthRecomputePayload, error) {
	var payload HealthRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HealthRecomputePayload{}, err
	}
	return payload, nil
}

func NewHealthSweepTask(payload HealthSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHealthSweep, data), nil
}

func ParseHealthSweepPayload(task *asynq.Task) (HealthSweepPayload, error) {
	var payload HealthSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HealthSweepPayload{}, err
	}
	return payload, nil
}

func NewStaleSweepTask(payload StaleSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleSweep, data), nil
}

func ParseStaleSweepPayload(task *asynq.Task) (StaleSweepPayload, error) {
	var payload StaleSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StaleSweepPayload{}, err
	}
	return payload, nil
}
