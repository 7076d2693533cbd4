// internal/engine/matcher/matcher.go
package matcher

import (
	"context"
	"fmt"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/models"
)

// Directory is the read-only Patient Directory. Implementations filter on blood group,
// donation opt-in and availability.
type Directory interface {
	QueryEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error)
}

// Matcher selects the donors to alert for a blood group.
type Matcher struct {
	directory Directory
	logger    logger.Logger
}

func New(directory Directory, log logger.Logger) *Matcher {
	return &Matcher{
		directory: directory,
		logger:    log.WithFields(map[string]interface{}{"component": "donor-matcher"}),
	}
}

// FindEligibleDonors returns every eligible donor for bloodGroup. An empty slice is not an error;
// a failed directory query is, and is never replaced by an empty list.
func (m *Matcher) FindEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error) {
	if !models.IsCanonicalBloodGroup(bloodGroup) {
		return nil, apperrors.NewValidationError("bloodGroup", fmt.Sprintf("unknown blood group %q", bloodGroup))
	}

	rows, err := m.directory.QueryEligibleDonors(ctx, bloodGroup)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeDirectoryUnavailable) {
			return nil, err
		}
		return nil, apperrors.NewDirectoryUnavailableError(bloodGroup, err)
	}

	donors := make([]models.Donor, 0, len(rows))
	dropped := 0
	for _, d := range rows {
		if !d.IsEligibleFor(bloodGroup) {
			dropped++
			continue
		}
		donors = append(donors, d)
	}

	if dropped > 0 {
		m.logger.Warn("directory returned ineligible donors", map[string]interface{}{
			"bloodGroup": bloodGroup,
			"dropped":    dropped,
		})
	}

	m.logger.Debug("eligible donors matched", map[string]interface{}{
		"bloodGroup": bloodGroup,
		"count":      len(donors),
	})

	return donors, nil
}
