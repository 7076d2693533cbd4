// internal/engine/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/metrics"
	"blood-alert-workers/internal/models"
)

const (
	DefaultMaxConcurrency = 8
	DefaultAttemptTimeout = 5 * time.Second
)

type Config struct {
	MaxConcurrency int
	AttemptTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	return c
}

// Dispatcher fans one rendered alert out to a donor cohort.
type Dispatcher struct {
	channel Channel
	config  Config
	logger  logger.Logger
	tracer  trace.Tracer
}

func New(channel Channel, cfg Config, log logger.Logger) *Dispatcher {
	if channel == nil {
		channel = NewUnconfiguredChannel()
	}
	return &Dispatcher{
		channel: channel,
		config:  cfg.withDefaults(),
		logger:  log.WithFields(map[string]interface{}{"component": "broadcast-dispatcher"}),
		tracer:  otel.Tracer("blood-alert-workers/dispatch"),
	}
}

// Simulated reports whether sends are only logged.
func (d *Dispatcher) Simulated() bool {
	return !d.channel.Configured()
}

// Broadcast renders tmpl once and delivers it to every donor. Per-donor failures are recorded in the
// summary and never returned; the only error is a nil or malformed template, in which case nothing is sent.
func (d *Dispatcher) Broadcast(ctx context.Context, donors []models.Donor, tmpl *Template, ac AlertContext) (models.DispatchSummary, error) {
	if tmpl == nil {
		return models.DispatchSummary{}, apperrors.NewTemplateInvalidError("", "no template")
	}
	body := tmpl.Render(ac)

	ctx, span := d.tracer.Start(ctx, "dispatch.broadcast", trace.WithAttributes(
		attribute.String("template", tmpl.ID()),
		attribute.Int("donors", len(donors)),
	))
	defer span.End()

	start := time.Now()
	results := make([]models.DeliveryAttempt, len(donors))

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrency)
	for i, donor := range donors {
		g.Go(func() error {
			results[i] = d.attempt(ctx, donor, body)
			return nil
		})
	}
	_ = g.Wait()

	summary := models.DispatchSummary{Simulated: d.Simulated()}
	for _, a := range results {
		summary.Add(a)
		metrics.AlertDeliveries.WithLabelValues(tmpl.ID(), a.Result).Inc()
	}
	metrics.DispatchDuration.WithLabelValues(tmpl.ID()).Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("accepted", summary.Accepted),
		attribute.Int("skipped", summary.Skipped),
		attribute.Int("failed", summary.Failed),
	)
	d.logger.Info("broadcast complete", map[string]interface{}{
		"template":   tmpl.ID(),
		"bloodGroup": ac.BloodGroup,
		"accepted":   summary.Accepted,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"simulated":  summary.Simulated,
		"duration":   time.Since(start).String(),
	})

	return summary, nil
}

func (d *Dispatcher) attempt(ctx context.Context, donor models.Donor, body string) models.DeliveryAttempt {
	if !donor.HasContact() {
		d.logger.Debug("donor has no contact number", map[string]interface{}{"donorId": donor.PatientID})
		return models.DeliveryAttempt{DonorID: donor.PatientID, Result: models.DeliverySkippedNoContact, Reason: "no contact number"}
	}

	if !d.channel.Configured() {
		d.logger.Info("simulated alert", map[string]interface{}{
			"donorId": donor.PatientID,
			"message": body,
		})
		return models.DeliveryAttempt{DonorID: donor.PatientID, Result: models.DeliverySkippedNoChannel, Reason: "simulation mode"}
	}

	actx, cancel := context.WithTimeout(ctx, d.config.AttemptTimeout)
	defer cancel()

	if err := d.channel.Send(actx, donor.ContactNumber, body); err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("timeout after %s", d.config.AttemptTimeout)
		}
		sendErr := apperrors.NewChannelSendFailedError(donor.PatientID, err)
		d.logger.Warn("alert delivery failed", map[string]interface{}{
			"donorId":   donor.PatientID,
			"errorCode": string(sendErr.Code),
			"reason":    reason,
		})
		return models.DeliveryAttempt{DonorID: donor.PatientID, Result: models.DeliveryFailed, Reason: reason}
	}

	return models.DeliveryAttempt{DonorID: donor.PatientID, Result: models.DeliverySent}
}
