package registry

var bloodGroupEnum = []interface{}{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// requestTypeEnum matches the stock scoring table; SetRequestTypes replaces it when the table is configured.
var requestTypeEnum = []interface{}{"critical-care", "accident", "surgery", "routine"}

// Default returns the built-in registry.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-03-01",
		Activities: []Activity{
			{
				ID:          "blood.request.submit",
				DisplayName: "Submit Blood Request",
				Description: "Scores a hospital blood request, alerts eligible donors and records it",
				TaskType:    TaskSubmitBloodRequest,
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"requestType", "bloodGroup", "hospitalName"},
					"properties": map[string]interface{}{
						"requestId":     map[string]interface{}{"type": "string"},
						"requestType":   map[string]interface{}{"type": "string", "enum": requestTypeEnum},
						"bloodGroup":    map[string]interface{}{"type": "string", "enum": bloodGroupEnum},
						"unitsRequired": map[string]interface{}{"type": "integer", "minimum": 1},
						"units":         map[string]interface{}{"type": "integer", "minimum": 1},
						"hospitalId":    map[string]interface{}{"type": "string"},
						"hospitalName":  map[string]interface{}{"type": "string", "minLength": 1},
					},
					"anyOf": []interface{}{
						map[string]interface{}{"required": []interface{}{"unitsRequired"}},
						map[string]interface{}{"required": []interface{}{"units"}},
					},
				},
				ErrorCodes: []string{"VALIDATION_FAILED", "SCORING_ENGINE_FAILED", "DIRECTORY_UNAVAILABLE", "LEDGER_WRITE_FAILED", "TEMPLATE_INVALID", "DUPLICATE_REQUEST_ID"},
				Timeout:    "30s",
				Retries:    3,
				Tags:       []string{"blood", "alert"},
			},
			{
				ID:          "blood.alert.trigger",
				DisplayName: "Trigger Escalation Alert",
				Description: "Re-broadcasts an escalation alert to eligible donors without touching the ledger",
				TaskType:    TaskTriggerAlert,
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"hospitalName", "bloodGroup", "urgencyScore"},
					"properties": map[string]interface{}{
						"hospitalName": map[string]interface{}{"type": "string", "minLength": 1},
						"bloodGroup":   map[string]interface{}{"type": "string", "enum": bloodGroupEnum},
						"urgencyScore": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
						"requestType":  map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{"VALIDATION_FAILED", "DIRECTORY_UNAVAILABLE", "TEMPLATE_INVALID"},
				Timeout:    "30s",
				Retries:    3,
				Tags:       []string{"blood", "alert", "escalation"},
			},
		},
		Templates: []AlertTemplate{
			{
				ID:          TemplateUrgent,
				Description: "First alert for a new request",
				Body:        "URGENT: {{hospitalName}} needs {{bloodGroup}} blood for {{requestType}}. Urgency: {{urgencyScore}}/100. Please contact immediately!",
			},
			{
				ID:          TemplateEscalation,
				Description: "Repeat alert when a request is still unmet",
				Body:        "CRITICAL ESCALATION: Patient death risk increasing. {{hospitalName}} needs {{bloodGroup}} NOW for {{requestType}}! Score: {{urgencyScore}}.",
			},
		},
	}
}
