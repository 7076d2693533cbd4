// internal/workers/bloodrequest/trigger-alert/models.go
package triggeralert

type Input struct {
	HospitalName string `json:"hospitalName"`
	BloodGroup   string `json:"bloodGroup"`
	UrgencyScore int    `json:"urgencyScore"`
	RequestType  string `json:"requestType"`
}

type Output struct {
	Success        bool `json:"success"`
	Count          int  `json:"count"`
	DonorsSkipped  int  `json:"donorsSkipped"`
	DonorsFailed   int  `json:"donorsFailed"`
	SimulatedAlert bool `json:"simulatedAlert"`
}
