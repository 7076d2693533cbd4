// internal/models/donor.go
package models

import "strings"

// Availability statuses
const (
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
)

// Donor is the read-only view of a patient record that opted into blood donation.
type Donor struct {
	PatientID          string `json:"patientId"`
	Name               string `json:"name"`
	BloodGroup         string `json:"bloodGroup"`
	ContactNumber      string `json:"contactNumber"`
	DonationOptIn      bool   `json:"donationOptIn"`
	AvailabilityStatus string `json:"availabilityStatus"`
}

// IsEligibleFor reports whether the donor can be alerted for the given blood group.
func (d Donor) IsEligibleFor(bloodGroup string) bool {
	return d.DonationOptIn &&
		d.AvailabilityStatus == AvailabilityAvailable &&
		d.BloodGroup == bloodGroup
}

// HasContact reports whether the donor carries a usable contact number.
func (d Donor) HasContact() bool {
	return strings.TrimSpace(d.ContactNumber) != ""
}
