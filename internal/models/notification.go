// internal/models/notification.go
package models

// Delivery results
const (
	DeliverySent             = "sent"
	DeliverySkippedNoChannel = "skipped-no-channel"
	DeliverySkippedNoContact = "skipped-no-contact"
	DeliveryFailed           = "failed"
)

// DeliveryAttempt records the outcome of one alert to one donor. Never persisted.
type DeliveryAttempt struct {
	DonorID string `json:"donorId"`
	Result  string `json:"result"`
	Reason  string `json:"reason,omitempty"`
}

// DispatchSummary aggregates the attempts of one broadcast.
type DispatchSummary struct {
	Accepted  int               `json:"accepted"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Simulated bool              `json:"simulated"`
	Attempts  []DeliveryAttempt `json:"-"`
}

// Add folds one attempt into the summary counts.
//
// Simulated sends count as accepted; skipped-no-channel only happens in simulation mode.
func (s *DispatchSummary) Add(a DeliveryAttempt) {
	switch a.Result {
	case DeliverySent, DeliverySkippedNoChannel:
		s.Accepted++
	case DeliverySkippedNoContact:
		s.Skipped++
	case DeliveryFailed:
		s.Failed++
	}
	s.Attempts = append(s.Attempts, a)
}
