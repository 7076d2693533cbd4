package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/pkg/registry"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks boundary payloads against the input schemas of the activity registry.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(reg.Activities))}
	for _, a := range reg.Activities {
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", a.TaskType, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// Validate checks input against the schema registered for taskType. A task type without a schema passes.
func (v *Validator) Validate(taskType string, input map[string]interface{}) (*ValidationResult, error) {
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate %s input: %w", taskType, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(e),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

func fieldOf(e gojsonschema.ResultError) string {
	if e.Field() == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		if p, ok := e.Details()["property"].(string); ok {
			return p
		}
	}
	return e.Field()
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Err converts a failed result into a VALIDATION_FAILED error, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	field := ""
	if len(vr.Errors) > 0 {
		field = vr.Errors[0].Field
	}
	return apperrors.NewValidationError(field, strings.Join(vr.GetErrorMessages(), "; "))
}

// Decode parses raw JSON, validates it against taskType's schema and unmarshals it into out.
// Every failure is a VALIDATION_FAILED error except a schema evaluation fault.
func (v *Validator) Decode(taskType string, raw []byte, out interface{}) error {
	var vars map[string]interface{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		return apperrors.NewValidationError("body", fmt.Sprintf("parse input: %v", err))
	}

	res, err := v.Validate(taskType, vars)
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewValidationError("body", fmt.Sprintf("decode input: %v", err))
	}
	return nil
}
