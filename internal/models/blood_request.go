// internal/models/blood_request.go
package models

import "time"

// Canonical ABO/Rh blood groups.
const (
	BloodGroupAPos  = "A+"
	BloodGroupANeg  = "A-"
	BloodGroupBPos  = "B+"
	BloodGroupBNeg  = "B-"
	BloodGroupABPos = "AB+"
	BloodGroupABNeg = "AB-"
	BloodGroupOPos  = "O+"
	BloodGroupONeg  = "O-"
)

// BloodGroups lists the canonical groups in display order.
var BloodGroups = []string{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// IsCanonicalBloodGroup reports whether g is one of the eight canonical groups. Matching is exact.
func IsCanonicalBloodGroup(g string) bool {
	for _, bg := range BloodGroups {
		if bg == g {
			return true
		}
	}
	return false
}

// Request types
const (
	RequestTypeCriticalCare = "critical-care"
	RequestTypeAccident     = "accident"
	RequestTypeSurgery      = "surgery"
	RequestTypeRoutine      = "routine"
)

// Request statuses. Only active is ever written by the engine.
const (
	StatusActive    = "active"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

// CanTransition reports whether a ledger status change is allowed.
func CanTransition(from, to string) bool {
	return from == StatusActive && (to == StatusFulfilled || to == StatusCancelled)
}

// RequestDescriptor is the caller-supplied description of a blood request.
type RequestDescriptor struct {
	RequestID     string `json:"requestId,omitempty"`
	RequestType   string `json:"requestType"`
	BloodGroup    string `json:"bloodGroup"`
	UnitsRequired int    `json:"unitsRequired"`
	HospitalID    string `json:"hospitalId"`
	HospitalName  string `json:"hospitalName"`
}

// ScoreResult is the output of the scoring function.
type ScoreResult struct {
	Score            int    `json:"score"`
	IsCritical       bool   `json:"isCritical"`
	EscalationReason string `json:"escalationReason"`
}

// BloodRequestRecord is the row persisted in the request ledger.
type BloodRequestRecord struct {
	RequestID        string    `json:"requestId"`
	HospitalID       string    `json:"hospitalId"`
	HospitalName     string    `json:"hospitalName"`
	BloodGroup       string    `json:"bloodGroup"`
	UnitsRequired    int       `json:"unitsRequired"`
	RequestType      string    `json:"requestType"`
	UrgencyScore     int       `json:"urgencyScore"`
	IsCritical       bool      `json:"isCritical"`
	EscalationReason string    `json:"escalationReason"`
	DonorsNotified   int       `json:"donorsNotified"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewBloodRequestRecord joins a descriptor and its score into an active ledger record.
func NewBloodRequestRecord(d RequestDescriptor, s ScoreResult, donorsNotified int, createdAt time.Time) *BloodRequestRecord {
	return &BloodRequestRecord{
		RequestID:        d.RequestID,
		HospitalID:       d.HospitalID,
		HospitalName:     d.HospitalName,
		BloodGroup:       d.BloodGroup,
		UnitsRequired:    d.UnitsRequired,
		RequestType:      d.RequestType,
		UrgencyScore:     s.Score,
		IsCritical:       s.IsCritical,
		EscalationReason: s.EscalationReason,
		DonorsNotified:   donorsNotified,
		Status:           StatusActive,
		CreatedAt:        createdAt,
	}
}
