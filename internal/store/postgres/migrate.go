// internal/store/postgres/migrate.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		patient_id            TEXT PRIMARY KEY,
		name                  TEXT NOT NULL DEFAULT '',
		blood_group           TEXT NOT NULL DEFAULT '',
		contact_number        TEXT NOT NULL DEFAULT '',
		blood_donation        BOOLEAN NOT NULL DEFAULT FALSE,
		blood_donation_status TEXT NOT NULL DEFAULT 'available',
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_donor_lookup
		ON patients (blood_group, blood_donation, blood_donation_status)`,
	`CREATE TABLE IF NOT EXISTS blood_requests (
		id                TEXT PRIMARY KEY,
		hospital_id       TEXT NOT NULL DEFAULT '',
		hospital_name     TEXT NOT NULL DEFAULT '',
		blood_group       TEXT NOT NULL,
		units_required    INTEGER NOT NULL CHECK (units_required >= 1),
		request_type      TEXT NOT NULL,
		urgency_score     INTEGER NOT NULL CHECK (urgency_score BETWEEN 0 AND 100),
		is_critical       BOOLEAN NOT NULL DEFAULT FALSE,
		escalation_reason TEXT NOT NULL DEFAULT '',
		donors_notified   INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT 'active'
		                  CHECK (status IN ('active', 'fulfilled', 'cancelled')),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_blood_requests_status ON blood_requests (status, created_at DESC)`,
}

// Migrate creates the patients and blood_requests tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
