// internal/store/postgres/directory.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"blood-alert-workers/internal/models"
)

const queryEligibleDonors = `
	SELECT patient_id, name, blood_group, contact_number, blood_donation, blood_donation_status
	FROM patients
	WHERE blood_group = $1 AND blood_donation = TRUE AND blood_donation_status = $2
	ORDER BY patient_id`

// Directory reads eligible donors from the patients table.
type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) QueryEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error) {
	rows, err := d.db.QueryContext(ctx, queryEligibleDonors, bloodGroup, models.AvailabilityAvailable)
	if err != nil {
		return nil, fmt.Errorf("query donors: %w", err)
	}
	defer rows.Close()

	donors := []models.Donor{}
	for rows.Next() {
		var dn models.Donor
		if err := rows.Scan(&dn.PatientID, &dn.Name, &dn.BloodGroup, &dn.ContactNumber, &dn.DonationOptIn, &dn.AvailabilityStatus); err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, dn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return donors, nil
}
