// internal/engine/scoring/policy.go
package scoring

import (
	"fmt"
	"sort"

	"blood-alert-workers/internal/common/config"
	"blood-alert-workers/internal/models"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Policy holds the tunable scoring constants. The zero value is not usable; start from DefaultPolicy
// or PolicyFromConfig.
type Policy struct {
	// BaseSeverity maps a request type to its base score.
	BaseSeverity map[string]int
	// BonusPerUnit is added per unit required, up to MaxUnitBonus.
	BonusPerUnit int
	MaxUnitBonus int
	// CriticalThreshold marks a request critical when the score reaches it.
	CriticalThreshold int
	// HardCriticalTypes are always critical regardless of score.
	HardCriticalTypes []string
}

// DefaultPolicy returns the stock severity table.
func DefaultPolicy() Policy {
	return Policy{
		BaseSeverity: map[string]int{
			models.RequestTypeCriticalCare: 90,
			models.RequestTypeAccident:     75,
			models.RequestTypeSurgery:      60,
			models.RequestTypeRoutine:      30,
		},
		BonusPerUnit:      5,
		MaxUnitBonus:      20,
		CriticalThreshold: 80,
		HardCriticalTypes: []string{models.RequestTypeCriticalCare},
	}
}

// PolicyFromConfig applies the configured overrides to DefaultPolicy. A zero override is applied, not ignored.
func PolicyFromConfig(sc config.ScoringConfig) Policy {
	out := DefaultPolicy()
	for k, v := range sc.BaseSeverity {
		out.BaseSeverity[k] = v
	}
	if sc.BonusPerUnit != nil {
		out.BonusPerUnit = *sc.BonusPerUnit
	}
	if sc.MaxUnitBonus != nil {
		out.MaxUnitBonus = *sc.MaxUnitBonus
	}
	if sc.CriticalThreshold != nil {
		out.CriticalThreshold = *sc.CriticalThreshold
	}
	if sc.HardCriticalTypes != nil {
		out.HardCriticalTypes = append([]string{}, (*sc.HardCriticalTypes)...)
	}
	return out
}

// RequestTypes returns the scored request types in sorted order.
func (p Policy) RequestTypes() []string {
	types := make([]string, 0, len(p.BaseSeverity))
	for t := range p.BaseSeverity {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (p Policy) clone() Policy {
	out := p
	out.BaseSeverity = make(map[string]int, len(p.BaseSeverity))
	for k, v := range p.BaseSeverity {
		out.BaseSeverity[k] = v
	}
	out.HardCriticalTypes = append([]string(nil), p.HardCriticalTypes...)
	return out
}

// Validate checks the policy is internally consistent.
func (p Policy) Validate() error {
	if len(p.BaseSeverity) == 0 {
		return fmt.Errorf("scoring policy: base severity table is empty")
	}
	for t, v := range p.BaseSeverity {
		if v < MinScore || v > MaxScore {
			return fmt.Errorf("scoring policy: base severity for %q out of range: %d", t, v)
		}
	}
	if p.BonusPerUnit < 0 || p.MaxUnitBonus < 0 {
		return fmt.Errorf("scoring policy: unit bonus must not be negative")
	}
	if p.CriticalThreshold < MinScore || p.CriticalThreshold > MaxScore {
		return fmt.Errorf("scoring policy: critical threshold out of range: %d", p.CriticalThreshold)
	}
	for _, t := range p.HardCriticalTypes {
		if _, ok := p.BaseSeverity[t]; !ok {
			return fmt.Errorf("scoring policy: hard-critical type %q has no base severity", t)
		}
	}
	return nil
}

func (p Policy) isHardCritical(requestType string) bool {
	for _, t := range p.HardCriticalTypes {
		if t == requestType {
			return true
		}
	}
	return false
}
