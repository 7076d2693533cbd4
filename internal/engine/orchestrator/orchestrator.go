// internal/engine/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/metrics"
	"blood-alert-workers/internal/engine/dispatch"
	"blood-alert-workers/internal/engine/scoring"
	"blood-alert-workers/internal/models"
)

// Scorer computes urgency from a descriptor.
type Scorer interface {
	Score(d models.RequestDescriptor) (models.ScoreResult, error)
}

// DonorMatcher returns the eligible donors of a blood group.
type DonorMatcher interface {
	FindEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error)
}

// Broadcaster fans an alert out to donors.
type Broadcaster interface {
	Broadcast(ctx context.Context, donors []models.Donor, tmpl *dispatch.Template, ac dispatch.AlertContext) (models.DispatchSummary, error)
}

// Ledger persists request records. Create must reject a requestId that already exists.
type Ledger interface {
	Create(ctx context.Context, rec *models.BloodRequestRecord) (*models.BloodRequestRecord, error)
	SetDonorsNotified(ctx context.Context, id string, count int) (*models.BloodRequestRecord, error)
}

// Templates holds the two alert bodies.
type Templates struct {
	Urgent     *dispatch.Template
	Escalation *dispatch.Template
}

// SubmitResult carries the notification summary under notifiedMessage; message repeats it for older callers.
type SubmitResult struct {
	Success         bool                       `json:"success"`
	Request         *models.BloodRequestRecord `json:"request"`
	NotifiedMessage string                     `json:"notifiedMessage"`
	Message         string                     `json:"message"`
	Summary         models.DispatchSummary     `json:"summary"`
}

type ReEscalateResult struct {
	Success bool                   `json:"success"`
	Count   int                    `json:"count"`
	Summary models.DispatchSummary `json:"summary"`
}

type Option func(*Orchestrator)

// WithClock overrides the createdAt source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides requestId generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

// Orchestrator runs one blood request through scoring, matching, dispatch and the ledger.
type Orchestrator struct {
	scorer     Scorer
	matcher    DonorMatcher
	dispatcher Broadcaster
	ledger     Ledger
	templates  Templates
	logger     logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

func New(scorer Scorer, matcher DonorMatcher, dispatcher Broadcaster, ledger Ledger, templates Templates, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scorer:     scorer,
		matcher:    matcher,
		dispatcher: dispatcher,
		ledger:     ledger,
		templates:  templates,
		logger:     log.WithFields(map[string]interface{}{"component": "request-orchestrator"}),
		tracer:     otel.Tracer("blood-alert-workers/orchestrator"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitRequest scores and matches, inserts the request, broadcasts, then records the accepted count.
// Nothing is written when scoring or matching fails. A reused requestId fails with DUPLICATE_REQUEST_ID
// before any alert. A ledger failure after dispatch is LEDGER_WRITE_FAILED and is not retryable, since
// alerts already delivered stay delivered. Not idempotent.
func (o *Orchestrator) SubmitRequest(ctx context.Context, d models.RequestDescriptor) (result *SubmitResult, err error) {
	if d.RequestID == "" {
		d.RequestID = o.newID()
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.submit_request", trace.WithAttributes(
		attribute.String("requestId", d.RequestID),
		attribute.String("bloodGroup", d.BloodGroup),
		attribute.String("requestType", d.RequestType),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		critical := result != nil && result.Request.IsCritical
		metrics.BloodRequestsSubmitted.WithLabelValues(outcome, strconv.FormatBool(critical)).Inc()
		span.End()
	}()

	log := o.logger.WithFields(map[string]interface{}{"requestId": d.RequestID})

	score, err := o.score(d)
	if err != nil {
		log.Warn("scoring rejected request", map[string]interface{}{"error": err})
		return nil, err
	}
	metrics.UrgencyScores.Observe(float64(score.Score))
	span.SetAttributes(attribute.Int("urgencyScore", score.Score), attribute.Bool("isCritical", score.IsCritical))

	donors, err := o.matcher.FindEligibleDonors(ctx, d.BloodGroup)
	if err != nil {
		log.Error("donor matching failed", map[string]interface{}{"error": err})
		return nil, err
	}
	if o.templates.Urgent == nil {
		return nil, apperrors.NewTemplateInvalidError("urgent", "no template")
	}

	// The row is reserved before any donor is alerted so a reused requestId never reaches the channel.
	record := models.NewBloodRequestRecord(d, score, 0, o.now())
	if _, err := o.ledger.Create(ctx, record); err != nil {
		log.Error("ledger write failed before dispatch", map[string]interface{}{"error": err})
		if apperrors.Is(err, apperrors.ErrCodeDuplicateRequest) || apperrors.Is(err, apperrors.ErrCodeLedgerWriteFailed) {
			return nil, err
		}
		return nil, apperrors.NewLedgerWriteFailedError(d.RequestID, err)
	}

	summary, err := o.dispatcher.Broadcast(ctx, donors, o.templates.Urgent, dispatch.AlertContext{
		HospitalName: d.HospitalName,
		BloodGroup:   d.BloodGroup,
		RequestType:  d.RequestType,
		UrgencyScore: score.Score,
	})
	if err != nil {
		log.Error("broadcast aborted", map[string]interface{}{"error": err})
		return nil, err
	}

	saved, err := o.ledger.SetDonorsNotified(ctx, d.RequestID, summary.Accepted)
	if err != nil {
		log.Error("ledger update failed after dispatch", map[string]interface{}{
			"error":    err,
			"accepted": summary.Accepted,
		})
		// Donors were alerted; a retry would alert them again.
		failed := apperrors.NewLedgerWriteFailedError(d.RequestID, err)
		failed.Retryable = false
		return nil, failed
	}
	if saved == nil {
		record.DonorsNotified = summary.Accepted
		saved = record
	}

	log.Info("blood request submitted", map[string]interface{}{
		"urgencyScore":     saved.UrgencyScore,
		"isCritical":       saved.IsCritical,
		"escalationReason": saved.EscalationReason,
		"accepted":         summary.Accepted,
		"skipped":          summary.Skipped,
		"failed":           summary.Failed,
	})

	notified := fmt.Sprintf("Alert sent to %d donors with Urgency Score: %d", summary.Accepted, saved.UrgencyScore)
	return &SubmitResult{
		Success:         true,
		Request:         saved,
		NotifiedMessage: notified,
		Message:         notified,
		Summary:         summary,
	}, nil
}

// ReEscalate re-broadcasts an escalation alert for an existing situation. The ledger is never touched.
func (o *Orchestrator) ReEscalate(ctx context.Context, hospitalName, bloodGroup string, urgencyScore int, requestType string) (*ReEscalateResult, error) {
	if !models.IsCanonicalBloodGroup(bloodGroup) {
		return nil, apperrors.NewValidationError("bloodGroup", fmt.Sprintf("unknown blood group %q", bloodGroup))
	}
	if urgencyScore < scoring.MinScore || urgencyScore > scoring.MaxScore {
		return nil, apperrors.NewValidationError("urgencyScore", fmt.Sprintf("must be within %d..%d, got %d", scoring.MinScore, scoring.MaxScore, urgencyScore))
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.re_escalate", trace.WithAttributes(
		attribute.String("bloodGroup", bloodGroup),
		attribute.Int("urgencyScore", urgencyScore),
	))
	defer span.End()

	donors, err := o.matcher.FindEligibleDonors(ctx, bloodGroup)
	if err != nil {
		span.RecordError(err)
		o.logger.Error("escalation matching failed", map[string]interface{}{"error": err, "bloodGroup": bloodGroup})
		return nil, err
	}

	summary, err := o.dispatcher.Broadcast(ctx, donors, o.templates.Escalation, dispatch.AlertContext{
		HospitalName: hospitalName,
		BloodGroup:   bloodGroup,
		RequestType:  requestType,
		UrgencyScore: urgencyScore,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.logger.Info("escalation broadcast", map[string]interface{}{
		"hospitalName": hospitalName,
		"bloodGroup":   bloodGroup,
		"urgencyScore": urgencyScore,
		"accepted":     summary.Accepted,
	})

	return &ReEscalateResult{Success: true, Count: summary.Accepted, Summary: summary}, nil
}

// score runs the scorer and maps anything other than a validation error, including a panic,
// to SCORING_ENGINE_FAILED.
func (o *Orchestrator) score(d models.RequestDescriptor) (res models.ScoreResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewScoringEngineError(fmt.Errorf("panic: %v", r))
		}
	}()

	res, err = o.scorer.Score(d)
	if err == nil {
		return res, nil
	}
	if apperrors.Is(err, apperrors.ErrCodeValidationFailed) || apperrors.Is(err, apperrors.ErrCodeScoringEngineFailed) {
		return models.ScoreResult{}, err
	}
	return models.ScoreResult{}, apperrors.NewScoringEngineError(err)
}
