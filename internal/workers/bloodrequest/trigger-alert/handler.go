// internal/workers/bloodrequest/trigger-alert/handler.go
package triggeralert

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/observability"
	"blood-alert-workers/internal/common/validation"
	"blood-alert-workers/internal/engine/orchestrator"
	"blood-alert-workers/internal/workers/bloodrequest"
	"blood-alert-workers/pkg/registry"
)

const (
	TaskType = registry.TaskTriggerAlert
)

type Escalator interface {
	ReEscalate(ctx context.Context, hospitalName, bloodGroup string, urgencyScore int, requestType string) (*orchestrator.ReEscalateResult, error)
}

type Handler struct {
	config    *Config
	escalator Escalator
	runner    *bloodrequest.JobRunner
}

func NewHandler(config *Config, escalator Escalator, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		escalator: escalator,
		runner:    bloodrequest.NewJobRunner(TaskType, validator, obs, log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, h.config.Timeout, func(ctx context.Context) (interface{}, error) {
		var input Input
		if err := h.runner.Decode(job.Variables, &input); err != nil {
			return nil, err
		}
		return h.Execute(ctx, &input)
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.escalator.ReEscalate(ctx, input.HospitalName, input.BloodGroup, input.UrgencyScore, input.RequestType)
	if err != nil {
		return nil, err
	}
	return &Output{
		Success:        result.Success,
		Count:          result.Count,
		DonorsSkipped:  result.Summary.Skipped,
		DonorsFailed:   result.Summary.Failed,
		SimulatedAlert: result.Summary.Simulated,
	}, nil
}
