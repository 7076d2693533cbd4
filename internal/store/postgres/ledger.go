// internal/store/postgres/ledger.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"blood-alert-workers/internal/common/database"
	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/models"
)

const requestColumns = `id, hospital_id, hospital_name, blood_group, units_required, request_type,
	urgency_score, is_critical, escalation_reason, donors_notified, status, created_at`

// uniqueViolation is the SQLSTATE postgres returns when the primary key already exists.
const uniqueViolation = "23505"

// Ledger persists blood requests. Rows are inserted once before any donor is alerted;
// donors_notified is filled in after dispatch and status moves afterwards.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Create(ctx context.Context, rec *models.BloodRequestRecord) (*models.BloodRequestRecord, error) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO blood_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.RequestID,
		rec.HospitalID,
		rec.HospitalName,
		rec.BloodGroup,
		rec.UnitsRequired,
		rec.RequestType,
		rec.UrgencyScore,
		rec.IsCritical,
		rec.EscalationReason,
		rec.DonorsNotified,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.NewDuplicateRequestError(rec.RequestID, err)
		}
		return nil, apperrors.NewLedgerWriteFailedError(rec.RequestID, err)
	}
	return rec, nil
}

// SetDonorsNotified records how many donors the broadcast reached.
func (l *Ledger) SetDonorsNotified(ctx context.Context, id string, count int) (*models.BloodRequestRecord, error) {
	row := l.db.QueryRowContext(ctx, `UPDATE blood_requests SET donors_notified = $2 WHERE id = $1 RETURNING `+requestColumns, id, count)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRequestNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewLedgerWriteFailedError(id, err)
	}
	return rec, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.BloodRequestRecord, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRequestNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get blood request %s: %w", id, err)
	}
	return rec, nil
}

// List returns the newest requests first, optionally filtered by status.
func (l *Ledger) List(ctx context.Context, status string, limit int) ([]*models.BloodRequestRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = l.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM blood_requests
			ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = l.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM blood_requests
			WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	out := []*models.BloodRequestRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blood request: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus moves a request out of active. Terminal statuses are immutable.
func (l *Ledger) UpdateStatus(ctx context.Context, id, status string) (*models.BloodRequestRecord, error) {
	var updated *models.BloodRequestRecord
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM blood_requests WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewRequestNotFoundError(id)
		}
		if err != nil {
			return apperrors.NewLedgerWriteFailedError(id, err)
		}
		if !models.CanTransition(current, status) {
			return apperrors.NewInvalidStatusTransitionError(id, current, status)
		}

		row := tx.QueryRowContext(ctx, `UPDATE blood_requests SET status = $2 WHERE id = $1 RETURNING `+requestColumns, id, status)
		updated, err = scanRecord(row)
		if err != nil {
			return apperrors.NewLedgerWriteFailedError(id, err)
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*apperrors.StandardError); ok {
			return nil, err
		}
		return nil, apperrors.NewLedgerWriteFailedError(id, err)
	}
	return updated, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.BloodRequestRecord, error) {
	var rec models.BloodRequestRecord
	err := s.Scan(
		&rec.RequestID,
		&rec.HospitalID,
		&rec.HospitalName,
		&rec.BloodGroup,
		&rec.UnitsRequired,
		&rec.RequestType,
		&rec.UrgencyScore,
		&rec.IsCritical,
		&rec.EscalationReason,
		&rec.DonorsNotified,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
