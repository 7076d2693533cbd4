package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-alert-workers/internal/common/config"
	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/models"
)

func descriptor(requestType, bloodGroup string, units int) models.RequestDescriptor {
	return models.RequestDescriptor{
		RequestID:     "req-001",
		RequestType:   requestType,
		BloodGroup:    bloodGroup,
		UnitsRequired: units,
		HospitalID:    "H1",
		HospitalName:  "City Hospital",
	}
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name             string
		input            models.RequestDescriptor
		expectedScore    int
		expectedCritical bool
		expectedReason   string
	}{
		{"accident three units", descriptor(models.RequestTypeAccident, "O-", 3), 90, true, ReasonThreshold},
		{"routine one unit", descriptor(models.RequestTypeRoutine, "A+", 1), 35, false, ""},
		{"routine bonus capped", descriptor(models.RequestTypeRoutine, "B+", 50), 50, false, ""},
		{"surgery just under threshold", descriptor(models.RequestTypeSurgery, "AB-", 3), 75, false, ""},
		{"surgery reaches threshold", descriptor(models.RequestTypeSurgery, "AB+", 4), 80, true, ReasonThreshold},
		{"critical care clamps to 100", descriptor(models.RequestTypeCriticalCare, "O+", 4), 100, true, ReasonHardCritical + "; " + ReasonThreshold},
		{"accident one unit", descriptor(models.RequestTypeAccident, "B-", 1), 80, true, ReasonThreshold},
	}

	scorer := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := scorer.Score(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedCritical, result.IsCritical)
			assert.Equal(t, tt.expectedReason, result.EscalationReason)
		})
	}
}

func TestScorer_HardCriticalBelowThreshold(t *testing.T) {
	policy := DefaultPolicy()
	policy.BaseSeverity[models.RequestTypeCriticalCare] = 10
	scorer, err := New(policy)
	require.NoError(t, err)

	for units := 1; units <= 10; units++ {
		result, err := scorer.Score(descriptor(models.RequestTypeCriticalCare, "A-", units))
		require.NoError(t, err)
		assert.True(t, result.IsCritical, "units=%d", units)
		assert.Equal(t, ReasonHardCritical, result.EscalationReason)
		assert.Less(t, result.Score, 80)
	}
}

func TestScorer_CriticalCareAlwaysCritical(t *testing.T) {
	scorer := Default()
	for _, units := range []int{1, 2, 3, 7, 1000, math.MaxInt} {
		result, err := scorer.Score(descriptor(models.RequestTypeCriticalCare, "O-", units))
		require.NoError(t, err)
		assert.True(t, result.IsCritical)
		assert.Contains(t, result.EscalationReason, ReasonHardCritical)
	}
}

func TestScorer_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input models.RequestDescriptor
		field string
	}{
		{"unknown blood group", descriptor(models.RequestTypeAccident, "XYZ", 2), "bloodGroup"},
		{"lowercase blood group", descriptor(models.RequestTypeAccident, "o-", 2), "bloodGroup"},
		{"zero units", descriptor(models.RequestTypeAccident, "O-", 0), "unitsRequired"},
		{"negative units", descriptor(models.RequestTypeSurgery, "A+", -4), "unitsRequired"},
		{"unknown request type", descriptor("picnic", "A+", 1), "requestType"},
	}

	scorer := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scorer.Score(tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationFailed))
			assert.Equal(t, tt.field, apperrors.AsStandard(err).Metadata["field"])
		})
	}
}

func TestScorer_DeterministicAndInRange(t *testing.T) {
	scorer := Default()
	rng := rand.New(rand.NewSource(42))
	types := []string{
		models.RequestTypeCriticalCare, models.RequestTypeAccident,
		models.RequestTypeSurgery, models.RequestTypeRoutine,
	}

	for i := 0; i < 500; i++ {
		d := descriptor(types[rng.Intn(len(types))], models.BloodGroups[rng.Intn(len(models.BloodGroups))], 1+rng.Intn(40))

		first, err := scorer.Score(d)
		require.NoError(t, err)
		second, err := scorer.Score(d)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.GreaterOrEqual(t, first.Score, MinScore)
		assert.LessOrEqual(t, first.Score, MaxScore)
		assert.Equal(t, first.IsCritical, first.EscalationReason != "")
	}
}

func intPtr(v int) *int { return &v }

func TestPolicyFromConfig(t *testing.T) {
	tests := []struct {
		name  string
		sc    config.ScoringConfig
		check func(t *testing.T, p Policy)
	}{
		{"empty keeps defaults", config.ScoringConfig{}, func(t *testing.T, p Policy) {
			assert.Equal(t, DefaultPolicy(), p)
		}},
		{"severity entries merge by key", config.ScoringConfig{BaseSeverity: map[string]int{models.RequestTypeRoutine: 40}}, func(t *testing.T, p Policy) {
			assert.Equal(t, 40, p.BaseSeverity[models.RequestTypeRoutine])
			assert.Equal(t, 75, p.BaseSeverity[models.RequestTypeAccident])
		}},
		{"zero unit bonus disables the bonus", config.ScoringConfig{BonusPerUnit: intPtr(0)}, func(t *testing.T, p Policy) {
			assert.Equal(t, 0, p.BonusPerUnit)
			assert.Equal(t, 20, p.MaxUnitBonus)
		}},
		{"zero threshold is applied", config.ScoringConfig{CriticalThreshold: intPtr(0)}, func(t *testing.T, p Policy) {
			assert.Equal(t, 0, p.CriticalThreshold)
		}},
		{"empty hard-critical list clears it", config.ScoringConfig{HardCriticalTypes: &[]string{}}, func(t *testing.T, p Policy) {
			assert.Empty(t, p.HardCriticalTypes)
		}},
		{"new request type", config.ScoringConfig{BaseSeverity: map[string]int{"transfusion": 50}}, func(t *testing.T, p Policy) {
			assert.Equal(t, []string{"accident", "critical-care", "routine", "surgery", "transfusion"}, p.RequestTypes())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PolicyFromConfig(tt.sc)
			tt.check(t, p)
			assert.NoError(t, p.Validate())
		})
	}

	// the default table is not mutated by an override
	assert.Equal(t, 30, DefaultPolicy().BaseSeverity[models.RequestTypeRoutine])
}

func TestScorer_ZeroUnitBonusOverride(t *testing.T) {
	scorer, err := New(PolicyFromConfig(config.ScoringConfig{BonusPerUnit: intPtr(0)}))
	require.NoError(t, err)

	result, err := scorer.Score(descriptor(models.RequestTypeSurgery, "A+", 4))
	require.NoError(t, err)
	assert.Equal(t, 60, result.Score)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.CriticalThreshold = 120
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.HardCriticalTypes = []string{"trauma"}
	_, err := New(bad)
	assert.Error(t, err)
}

func TestScorer_CustomThresholdReason(t *testing.T) {
	scorer, err := New(PolicyFromConfig(config.ScoringConfig{CriticalThreshold: intPtr(70)}))
	require.NoError(t, err)

	result, err := scorer.Score(descriptor(models.RequestTypeSurgery, "A+", 2))
	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	assert.True(t, result.IsCritical)
	assert.Equal(t, "score≥70", result.EscalationReason)
}
