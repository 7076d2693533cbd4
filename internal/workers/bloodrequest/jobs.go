// internal/workers/bloodrequest/jobs.go
package bloodrequest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/metrics"
	"blood-alert-workers/internal/common/observability"
	"blood-alert-workers/internal/common/validation"
)

// JobRunner holds the plumbing shared by the blood request workers: variable validation,
// job completion, error conversion and metrics.
type JobRunner struct {
	TaskType   string
	Validator  *validation.Validator
	Obs        *observability.Observability
	Logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewJobRunner(taskType string, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *JobRunner {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &JobRunner{
		TaskType:   taskType,
		Validator:  validator,
		Obs:        obs,
		Logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

// Decode validates the job variables against the task's input schema and unmarshals them into out.
func (r *JobRunner) Decode(variables string, out interface{}) error {
	if r.Validator == nil {
		if err := json.Unmarshal([]byte(variables), out); err != nil {
			return apperrors.NewValidationError("variables", fmt.Sprintf("decode input: %v", err))
		}
		return nil
	}
	return r.Validator.Decode(r.TaskType, []byte(variables), out)
}

// Run executes fn with a timeout and completes or fails the job with its result.
func (r *JobRunner) Run(client worker.JobClient, job entities.Job, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) {
	r.Logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	output, err := fn(ctx)
	if err != nil {
		code := string(apperrors.CodeOf(err))
		metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, code).Inc()
		r.Obs.RecordJob(ctx, r.TaskType, code, time.Since(start))
		r.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	r.Obs.RecordJob(ctx, r.TaskType, "completed", time.Since(start))
	r.completeJob(ctx, client, job, output)
}

func (r *JobRunner) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.Logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(ctx); err != nil {
		r.Logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	r.Logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}
