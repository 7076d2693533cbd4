// Package scoring derives the urgency score of a blood request. It is pure: no I/O, no clock.
package scoring

import (
	"fmt"
	"math"
	"strings"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/models"
)

const (
	ReasonHardCritical = "critical-care request type"
	ReasonThreshold    = "score≥80"
)

// Scorer applies a Policy to request descriptors.
type Scorer struct {
	policy Policy
}

func New(policy Policy) (*Scorer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{policy: policy}, nil
}

// Default returns a Scorer on DefaultPolicy.
func Default() *Scorer {
	return &Scorer{policy: DefaultPolicy()}
}

// Policy returns a copy of the active policy.
func (s *Scorer) Policy() Policy {
	return s.policy.clone()
}

// Score computes the ScoreResult for d or fails with a VALIDATION_FAILED error.
func (s *Scorer) Score(d models.RequestDescriptor) (models.ScoreResult, error) {
	if !models.IsCanonicalBloodGroup(d.BloodGroup) {
		return models.ScoreResult{}, apperrors.NewValidationError("bloodGroup",
			fmt.Sprintf("unknown blood group %q", d.BloodGroup))
	}
	if d.UnitsRequired < 1 {
		return models.ScoreResult{}, apperrors.NewValidationError("unitsRequired",
			fmt.Sprintf("unitsRequired must be >= 1, got %d", d.UnitsRequired))
	}
	base, ok := s.policy.BaseSeverity[d.RequestType]
	if !ok {
		return models.ScoreResult{}, apperrors.NewValidationError("requestType",
			fmt.Sprintf("unknown request type %q", d.RequestType))
	}

	score := clamp(saturatingAdd(base, s.unitBonus(d.UnitsRequired)), MinScore, MaxScore)

	var reasons []string
	hardCritical := s.policy.isHardCritical(d.RequestType)
	if hardCritical {
		reasons = append(reasons, ReasonHardCritical)
	}
	overThreshold := score >= s.policy.CriticalThreshold
	if overThreshold {
		reasons = append(reasons, thresholdReason(s.policy.CriticalThreshold))
	}

	return models.ScoreResult{
		Score:            score,
		IsCritical:       hardCritical || overThreshold,
		EscalationReason: strings.Join(reasons, "; "),
	}, nil
}

// unitBonus is min(units × bonusPerUnit, maxUnitBonus) without overflowing.
func (s *Scorer) unitBonus(units int) int {
	if s.policy.BonusPerUnit == 0 {
		return 0
	}
	if units > s.policy.MaxUnitBonus/s.policy.BonusPerUnit {
		return s.policy.MaxUnitBonus
	}
	bonus := units * s.policy.BonusPerUnit
	if bonus > s.policy.MaxUnitBonus {
		return s.policy.MaxUnitBonus
	}
	return bonus
}

func thresholdReason(threshold int) string {
	if threshold == 80 {
		return ReasonThreshold
	}
	return fmt.Sprintf("score≥%d", threshold)
}

func saturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
