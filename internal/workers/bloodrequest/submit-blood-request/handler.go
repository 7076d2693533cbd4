// internal/workers/bloodrequest/submit-blood-request/handler.go
package submitbloodrequest

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/observability"
	"blood-alert-workers/internal/common/validation"
	"blood-alert-workers/internal/engine/orchestrator"
	"blood-alert-workers/internal/models"
	"blood-alert-workers/internal/workers/bloodrequest"
	"blood-alert-workers/pkg/registry"
)

const (
	TaskType = registry.TaskSubmitBloodRequest
)

// Submitter is the orchestrator operation this worker drives.
type Submitter interface {
	SubmitRequest(ctx context.Context, d models.RequestDescriptor) (*orchestrator.SubmitResult, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	runner    *bloodrequest.JobRunner
	logger    logger.Logger
}

func NewHandler(config *Config, submitter Submitter, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Handler {
	runner := bloodrequest.NewJobRunner(TaskType, validator, obs, log)
	return &Handler{
		config:    config,
		submitter: submitter,
		runner:    runner,
		logger:    runner.Logger,
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
	result, err := h.submitter.SubmitRequest(ctx, input.Descriptor())
	if err != nil {
		return nil, err
	}

	rec := result.Request
	return &Output{
		RequestID:        rec.RequestID,
		UrgencyScore:     rec.UrgencyScore,
		IsCritical:       rec.IsCritical,
		EscalationReason: rec.EscalationReason,
		DonorsNotified:   rec.DonorsNotified,
		DonorsSkipped:    result.Summary.Skipped,
		DonorsFailed:     result.Summary.Failed,
		Status:           rec.Status,
		NotifiedMessage:  result.NotifiedMessage,
		Message:          result.Message,
	}, nil
}
