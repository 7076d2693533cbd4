package registry

// ActivityRegistry describes the BPMN activities served by this module and the alert templates they use.
type ActivityRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Activities  []Activity      `json:"activities"`
	Templates   []AlertTemplate `json:"templates"`
}

type Activity struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	TaskType     string                 `json:"taskType"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout"`
	Retries      int                    `json:"retries"`
	Tags         []string               `json:"tags,omitempty"`
}

// AlertTemplate is a single-line SMS body with {{field}} placeholders.
type AlertTemplate struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Body        string `json:"body"`
}
