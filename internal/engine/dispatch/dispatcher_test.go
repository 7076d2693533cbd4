package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsclient "blood-alert-workers/internal/common/aws"
	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/models"
)

const urgentBody = "URGENT: {{hospitalName}} needs {{bloodGroup}} blood for {{requestType}}. Urgency: {{urgencyScore}}/100. Please contact immediately!"

// ==========================
// Fakes
// ==========================

type fakeChannel struct {
	configured bool
	delay      time.Duration
	block      bool
	failFor    map[string]error

	mu   sync.Mutex
	sent map[string]string

	inFlight    int32
	maxInFlight int32
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{configured: true, sent: map[string]string{}, failFor: map[string]error{}}
}

func (f *fakeChannel) Configured() bool { return f.configured }

func (f *fakeChannel) Send(ctx context.Context, contact, body string) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failFor[contact]; ok {
		return err
	}

	f.mu.Lock()
	f.sent[contact] = body
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Helpers
// ==========================

func donors(n int) []models.Donor {
	out := make([]models.Donor, n)
	for i := range out {
		out[i] = models.Donor{
			PatientID:          fmt.Sprintf("P%d", i+1),
			Name:               fmt.Sprintf("Donor %d", i+1),
			BloodGroup:         models.BloodGroupONeg,
			ContactNumber:      fmt.Sprintf("+1555000%04d", i+1),
			DonationOptIn:      true,
			AvailabilityStatus: models.AvailabilityAvailable,
		}
	}
	return out
}

func alertContext() AlertContext {
	return AlertContext{
		HospitalName: "City General",
		BloodGroup:   models.BloodGroupONeg,
		RequestType:  models.RequestTypeAccident,
		UrgencyScore: 90,
	}
}

// ==========================
// Broadcast
// ==========================

func TestBroadcast_SimulationModeAcceptsEveryEligibleDonor(t *testing.T) {
	ch := newFakeChannel()
	ch.configured = false
	d := New(ch, Config{}, logger.NewTestLogger(t))

	summary, err := d.Broadcast(context.Background(), donors(5), MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.True(t, summary.Simulated)
	assert.Equal(t, 5, summary.Accepted)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, ch.sendCount())
	for _, a := range summary.Attempts {
		assert.Equal(t, models.DeliverySkippedNoChannel, a.Result)
	}
}

func TestBroadcast_OneFailureDoesNotAffectSiblings(t *testing.T) {
	ch := newFakeChannel()
	cohort := donors(5)
	ch.failFor[cohort[2].ContactNumber] = errors.New("InvalidParameter: phone number")
	d := New(ch, Config{MaxConcurrency: 3}, logger.NewTestLogger(t))

	summary, err := d.Broadcast(context.Background(), cohort, MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Accepted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, ch.sendCount())

	require.Len(t, summary.Attempts, 5)
	assert.Equal(t, "P3", summary.Attempts[2].DonorID)
	assert.Equal(t, models.DeliveryFailed, summary.Attempts[2].Result)
	assert.Contains(t, summary.Attempts[2].Reason, "InvalidParameter")
}

func TestBroadcast_AttemptTimeoutIsAFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.block = true
	d := New(ch, Config{AttemptTimeout: 20 * time.Millisecond}, logger.NewNoOpLogger())

	start := time.Now()
	summary, err := d.Broadcast(context.Background(), donors(3), MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, summary.Accepted)
	assert.Equal(t, 3, summary.Failed)
	for _, a := range summary.Attempts {
		assert.Equal(t, "timeout after 20ms", a.Reason)
	}
}

func TestBroadcast_RespectsConcurrencyLimit(t *testing.T) {
	ch := newFakeChannel()
	ch.delay = 5 * time.Millisecond
	d := New(ch, Config{MaxConcurrency: 2}, logger.NewNoOpLogger())

	summary, err := d.Broadcast(context.Background(), donors(12), MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.Equal(t, 12, summary.Accepted)
	assert.LessOrEqual(t, atomic.LoadInt32(&ch.maxInFlight), int32(2))
}

func TestBroadcast_SkipsDonorsWithoutContact(t *testing.T) {
	ch := newFakeChannel()
	cohort := donors(2)
	cohort[1].ContactNumber = "   "
	d := New(ch, Config{}, logger.NewNoOpLogger())

	summary, err := d.Broadcast(context.Background(), cohort, MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, models.DeliverySkippedNoContact, summary.Attempts[1].Result)
	assert.Equal(t, "URGENT: City General needs O- blood for accident. Urgency: 90/100. Please contact immediately!",
		ch.sent[cohort[0].ContactNumber])
}

func TestBroadcast_EmptyCohort(t *testing.T) {
	d := New(newFakeChannel(), Config{}, logger.NewNoOpLogger())

	summary, err := d.Broadcast(context.Background(), nil, MustParseTemplate("urgent", urgentBody), alertContext())

	require.NoError(t, err)
	assert.Equal(t, models.DispatchSummary{}, summary)
}

func TestBroadcast_NilTemplateSendsNothing(t *testing.T) {
	ch := newFakeChannel()
	d := New(ch, Config{}, logger.NewNoOpLogger())

	_, err := d.Broadcast(context.Background(), donors(3), nil, alertContext())

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeTemplateInvalid))
	assert.Equal(t, 0, ch.sendCount())
}

// ==========================
// Templates
// ==========================

func TestParseTemplate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "   "},
		{"multi-line", "URGENT: {{hospitalName}}\nneeds {{bloodGroup}} {{requestType}} {{urgencyScore}}"},
		{"unknown placeholder", "{{hospitalName}} {{bloodGroup}} {{requestType}} {{urgencyScore}} {{donorName}}"},
		{"unclosed placeholder", "{{hospitalName}} {{bloodGroup}} {{requestType}} {{urgencyScore"},
		{"stray brace", "{{hospitalName}} {{bloodGroup}} } {{requestType}} {{urgencyScore}}"},
		{"missing required placeholder", "URGENT: {{hospitalName}} needs {{bloodGroup}} now. Score {{urgencyScore}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate("broken", tt.body)
			assert.Nil(t, tmpl)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeTemplateInvalid))
		})
	}
}

func TestTemplate_RenderIsSingleLine(t *testing.T) {
	tmpl := MustParseTemplate("urgent", urgentBody)
	ac := alertContext()
	ac.HospitalName = "St. Mary's\nEmergency\tWing"

	msg := tmpl.Render(ac)

	assert.NotContains(t, msg, "\n")
	assert.Contains(t, msg, "St. Mary's Emergency Wing")
	assert.Contains(t, msg, "90/100")
}

func TestMustParseTemplate_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseTemplate("bad", "") })
}

// ==========================
// SNS channel
// ==========================

func TestSNSChannel_Send(t *testing.T) {
	var captured *sns.PublishInput
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
		},
	}
	ch := NewSNSChannel(mock, "BLOODALRT", "Transactional")

	require.True(t, ch.Configured())
	require.NoError(t, ch.Send(context.Background(), "+15550001", "hello"))

	require.NotNil(t, captured)
	assert.Equal(t, "+15550001", aws.ToString(captured.PhoneNumber))
	assert.Equal(t, "hello", aws.ToString(captured.Message))
	assert.Equal(t, "Transactional", aws.ToString(captured.MessageAttributes[awsclient.AttrSMSType].StringValue))
	assert.Equal(t, "BLOODALRT", aws.ToString(captured.MessageAttributes[awsclient.AttrSenderID].StringValue))
}

func TestSNSChannel_PublishErrorSurfaces(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	err := NewSNSChannel(mock, "", "").Send(context.Background(), "+15550001", "hello")

	assert.EqualError(t, err, "throttled")
}

func TestUnconfiguredChannel(t *testing.T) {
	ch := NewUnconfiguredChannel()

	assert.False(t, ch.Configured())
	assert.ErrorIs(t, ch.Send(context.Background(), "+1", "x"), ErrChannelNotConfigured)
	assert.False(t, NewSNSChannel(nil, "", "").Configured())
}
