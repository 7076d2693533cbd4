package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/engine/dispatch"
	"blood-alert-workers/internal/engine/matcher"
	"blood-alert-workers/internal/engine/scoring"
	"blood-alert-workers/internal/models"
)

const (
	urgentBody     = "URGENT: {{hospitalName}} needs {{bloodGroup}} blood for {{requestType}}. Urgency: {{urgencyScore}}/100. Please contact immediately!"
	escalationBody = "CRITICAL ESCALATION: Patient death risk increasing. {{hospitalName}} needs {{bloodGroup}} NOW for {{requestType}}! Score: {{urgencyScore}}."
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// ==========================
// Fakes
// ==========================

type memoryLedger struct {
	mu        sync.Mutex
	rows      []*models.BloodRequestRecord
	err       error
	updateErr error
}

func (l *memoryLedger) Create(_ context.Context, rec *models.BloodRequestRecord) (*models.BloodRequestRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	for _, row := range l.rows {
		if row.RequestID == rec.RequestID {
			return nil, apperrors.NewDuplicateRequestError(rec.RequestID, errors.New("unique violation"))
		}
	}
	cp := *rec
	l.rows = append(l.rows, &cp)
	return &cp, nil
}

func (l *memoryLedger) SetDonorsNotified(_ context.Context, id string, count int) (*models.BloodRequestRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updateErr != nil {
		return nil, l.updateErr
	}
	for _, row := range l.rows {
		if row.RequestID == id {
			row.DonorsNotified = count
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperrors.NewRequestNotFoundError(id)
}

func (l *memoryLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

type staticDirectory struct {
	donors []models.Donor
	err    error
}

func (d *staticDirectory) QueryEligibleDonors(_ context.Context, bloodGroup string) ([]models.Donor, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []models.Donor
	for _, donor := range d.donors {
		if donor.IsEligibleFor(bloodGroup) {
			out = append(out, donor)
		}
	}
	return out, nil
}

type recordingChannel struct {
	mu     sync.Mutex
	bodies []string
}

func (c *recordingChannel) Configured() bool { return true }

func (c *recordingChannel) Send(_ context.Context, _ string, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies = append(c.bodies, body)
	return nil
}

func (c *recordingChannel) sends() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...)
}

type panickingScorer struct{}

func (panickingScorer) Score(models.RequestDescriptor) (models.ScoreResult, error) {
	panic("policy table corrupted")
}

// ==========================
// Fixture
// ==========================

type fixture struct {
	orch    *Orchestrator
	ledger  *memoryLedger
	dir     *staticDirectory
	channel *recordingChannel
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := &staticDirectory{donors: []models.Donor{
		{PatientID: "P1", Name: "Asha", BloodGroup: "O-", ContactNumber: "+15550001", DonationOptIn: true, AvailabilityStatus: models.AvailabilityAvailable},
		{PatientID: "P2", Name: "Ben", BloodGroup: "O-", ContactNumber: "", DonationOptIn: true, AvailabilityStatus: models.AvailabilityAvailable},
		{PatientID: "P3", Name: "Chen", BloodGroup: "O-", ContactNumber: "+15550003", DonationOptIn: true, AvailabilityStatus: models.AvailabilityUnavailable},
		{PatientID: "P4", Name: "Dana", BloodGroup: "A+", ContactNumber: "+15550004", DonationOptIn: true, AvailabilityStatus: models.AvailabilityAvailable},
	}}
	ledger := &memoryLedger{}
	channel := &recordingChannel{}
	log := logger.NewTestLogger(t)

	templates := Templates{
		Urgent:     dispatch.MustParseTemplate("urgent", urgentBody),
		Escalation: dispatch.MustParseTemplate("escalation", escalationBody),
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	orch := New(
		scoring.Default(),
		matcher.New(dir, log),
		dispatch.New(channel, dispatch.Config{}, log),
		ledger,
		templates,
		log,
		opts...,
	)
	return &fixture{orch: orch, ledger: ledger, dir: dir, channel: channel}
}

func accidentDescriptor() models.RequestDescriptor {
	return models.RequestDescriptor{
		RequestType:   models.RequestTypeAccident,
		BloodGroup:    models.BloodGroupONeg,
		UnitsRequired: 3,
		HospitalID:    "H-100",
		HospitalName:  "City General",
	}
}

// ==========================
// SubmitRequest
// ==========================

func TestSubmitRequest_EndToEnd(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Request.RequestID)
	assert.Equal(t, 90, result.Request.UrgencyScore)
	assert.True(t, result.Request.IsCritical)
	assert.Equal(t, scoring.ReasonThreshold, result.Request.EscalationReason)
	assert.Equal(t, models.StatusActive, result.Request.Status)
	assert.Equal(t, 1, result.Request.DonorsNotified)
	assert.Equal(t, fixedNow, result.Request.CreatedAt)

	assert.Equal(t, 1, result.Summary.Accepted)
	assert.Equal(t, 1, result.Summary.Skipped)
	assert.Equal(t, 0, result.Summary.Failed)
	assert.Equal(t, "Alert sent to 1 donors with Urgency Score: 90", result.NotifiedMessage)
	assert.Equal(t, result.NotifiedMessage, result.Message)

	require.Equal(t, 1, f.ledger.count())
	assert.Equal(t, result.Request.RequestID, f.ledger.rows[0].RequestID)
	assert.Equal(t, 1, f.ledger.rows[0].DonorsNotified)

	sends := f.channel.sends()
	require.Len(t, sends, 1)
	assert.Equal(t, "URGENT: City General needs O- blood for accident. Urgency: 90/100. Please contact immediately!", sends[0])
}

func TestSubmitRequest_KeepsCallerRequestID(t *testing.T) {
	f := newFixture(t)
	d := accidentDescriptor()
	d.RequestID = "req-fixed"

	result, err := f.orch.SubmitRequest(context.Background(), d)

	require.NoError(t, err)
	assert.Equal(t, "req-fixed", result.Request.RequestID)
}

func TestSubmitRequest_ValidationFailureHasNoSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *models.RequestDescriptor)
	}{
		{"unknown blood group", func(d *models.RequestDescriptor) { d.BloodGroup = "XYZ" }},
		{"zero units", func(d *models.RequestDescriptor) { d.UnitsRequired = 0 }},
		{"unknown request type", func(d *models.RequestDescriptor) { d.RequestType = "elective" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			d := accidentDescriptor()
			tt.mutate(&d)

			result, err := f.orch.SubmitRequest(context.Background(), d)

			assert.Nil(t, result)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationFailed))
			assert.Equal(t, 0, f.ledger.count())
			assert.Empty(t, f.channel.sends())
		})
	}
}

func TestSubmitRequest_DirectoryFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.dir.err = errors.New("dial tcp: connection refused")

	result, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDirectoryUnavailable))
	assert.Equal(t, 0, f.ledger.count())
	assert.Empty(t, f.channel.sends())
}

func TestSubmitRequest_LedgerInsertFailureSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.ledger.err = errors.New("pq: could not serialize access")

	result, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeLedgerWriteFailed))
	assert.True(t, apperrors.AsStandard(err).Retryable)
	assert.Empty(t, f.channel.sends())
}

func TestSubmitRequest_LedgerUpdateFailureAfterDispatchIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.ledger.updateErr = errors.New("pq: connection reset")

	result, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeLedgerWriteFailed))
	assert.False(t, apperrors.AsStandard(err).Retryable)
	assert.Equal(t, 0, apperrors.ConvertToBPMNError(apperrors.AsStandard(err)).Retries)
	assert.Len(t, f.channel.sends(), 1)
}

func TestSubmitRequest_ReusedRequestIDAlertsOnce(t *testing.T) {
	f := newFixture(t)
	d := accidentDescriptor()
	d.RequestID = "req-retried"

	_, err := f.orch.SubmitRequest(context.Background(), d)
	require.NoError(t, err)

	result, err := f.orch.SubmitRequest(context.Background(), d)

	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDuplicateRequest))
	assert.False(t, apperrors.AsStandard(err).Retryable)
	assert.Equal(t, 1, f.ledger.count())
	assert.Len(t, f.channel.sends(), 1)
}

func TestSubmitRequest_MissingUrgentTemplateWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.orch.templates.Urgent = nil

	_, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeTemplateInvalid))
	assert.Equal(t, 0, f.ledger.count())
	assert.Empty(t, f.channel.sends())
}

func TestSubmitRequest_NotIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())
	require.NoError(t, err)
	second, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())
	require.NoError(t, err)

	assert.Equal(t, 2, f.ledger.count())
	assert.NotEqual(t, first.Request.RequestID, second.Request.RequestID)
}

func TestSubmitRequest_NoEligibleDonors(t *testing.T) {
	f := newFixture(t)
	d := accidentDescriptor()
	d.BloodGroup = models.BloodGroupABNeg

	result, err := f.orch.SubmitRequest(context.Background(), d)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Request.DonorsNotified)
	assert.Equal(t, "Alert sent to 0 donors with Urgency Score: 90", result.NotifiedMessage)
	assert.Equal(t, 1, f.ledger.count())
}

func TestSubmitRequest_ScorerPanicIsScoringEngineFailure(t *testing.T) {
	f := newFixture(t)
	f.orch.scorer = panickingScorer{}

	_, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeScoringEngineFailed))
	assert.Equal(t, 0, f.ledger.count())
}

func TestSubmitRequest_InjectedIDGenerator(t *testing.T) {
	f := newFixture(t, WithIDGenerator(func() string { return "gen-1" }))

	result, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())

	require.NoError(t, err)
	assert.Equal(t, "gen-1", result.Request.RequestID)
}

// ==========================
// ReEscalate
// ==========================

func TestReEscalate_LeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.SubmitRequest(context.Background(), accidentDescriptor())
	require.NoError(t, err)
	before := f.ledger.count()

	result, err := f.orch.ReEscalate(context.Background(), "City General", models.BloodGroupONeg, 95, models.RequestTypeAccident)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, before, f.ledger.count())

	sends := f.channel.sends()
	require.Len(t, sends, 2)
	assert.True(t, strings.HasPrefix(sends[1], "CRITICAL ESCALATION:"))
	assert.Contains(t, sends[1], "Score: 95.")
}

func TestReEscalate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		bloodGroup string
		score      int
		field      string
	}{
		{"bad group", "o-", 50, "bloodGroup"},
		{"score above range", "O-", 101, "urgencyScore"},
		{"negative score", "O-", -1, "urgencyScore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.orch.ReEscalate(context.Background(), "City General", tt.bloodGroup, tt.score, models.RequestTypeAccident)

			require.Error(t, err)
			stdErr := apperrors.AsStandard(err)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
			assert.Equal(t, tt.field, stdErr.Metadata["field"])
			assert.Empty(t, f.channel.sends())
		})
	}
}

func TestReEscalate_DirectoryFailure(t *testing.T) {
	f := newFixture(t)
	f.dir.err = errors.New("timeout")

	_, err := f.orch.ReEscalate(context.Background(), "City General", models.BloodGroupONeg, 80, models.RequestTypeSurgery)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDirectoryUnavailable))
}
