// internal/workers/bloodrequest/submit-blood-request/models.go
package submitbloodrequest

import "blood-alert-workers/internal/models"

type Input struct {
	RequestID     string `json:"requestId"`
	RequestType   string `json:"requestType"`
	BloodGroup    string `json:"bloodGroup"`
	UnitsRequired int    `json:"unitsRequired"`
	Units         int    `json:"units"` // legacy name
	HospitalID    string `json:"hospitalId"`
	HospitalName  string `json:"hospitalName"`
}

// Descriptor maps the job input onto the engine descriptor. unitsRequired wins over units.
func (i *Input) Descriptor() models.RequestDescriptor {
	units := i.UnitsRequired
	if units == 0 {
		units = i.Units
	}
	return models.RequestDescriptor{
		RequestID:     i.RequestID,
		RequestType:   i.RequestType,
		BloodGroup:    i.BloodGroup,
		UnitsRequired: units,
		HospitalID:    i.HospitalID,
		HospitalName:  i.HospitalName,
	}
}

type Output struct {
	RequestID        string `json:"requestId"`
	UrgencyScore     int    `json:"urgencyScore"`
	IsCritical       bool   `json:"isCritical"`
	EscalationReason string `json:"escalationReason"`
	DonorsNotified   int    `json:"donorsNotified"`
	DonorsSkipped    int    `json:"donorsSkipped"`
	DonorsFailed     int    `json:"donorsFailed"`
	Status           string `json:"status"`
	NotifiedMessage  string `json:"notifiedMessage"`
	Message          string `json:"message"`
}
