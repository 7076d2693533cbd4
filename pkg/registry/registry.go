package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Well-known ids
const (
	TemplateUrgent     = "urgent"
	TemplateEscalation = "escalation"

	TaskSubmitBloodRequest = "submit-blood-request"
	TaskTriggerAlert       = "trigger-alert"
)

var activityIDPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

// LoadRegistry reads a registry file. An empty path yields the built-in registry.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg.withDefaults(), nil
}

// Validate checks activity ids and that ids are unique.
func (r *ActivityRegistry) Validate() error {
	seen := map[string]bool{}
	for _, a := range r.Activities {
		if !activityIDPattern.MatchString(a.ID) {
			return fmt.Errorf("activity %q: id must follow domain.subdomain.action", a.ID)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %q: taskType is required", a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate activity for task type %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}

	seen = map[string]bool{}
	for _, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("template without id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate template %q", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Activity returns the activity for a task type.
func (r *ActivityRegistry) Activity(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Template returns the alert template with the given id.
func (r *ActivityRegistry) Template(id string) (AlertTemplate, bool) {
	for _, t := range r.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return AlertTemplate{}, false
}

// SetRequestTypes replaces the requestType enum of the submit schema so validation accepts exactly the
// types the scorer knows. An empty list is ignored.
func (r *ActivityRegistry) SetRequestTypes(types []string) {
	if len(types) == 0 {
		return
	}
	enum := make([]interface{}, len(types))
	for i, t := range types {
		enum[i] = t
	}

	for i, a := range r.Activities {
		if a.TaskType != TaskSubmitBloodRequest {
			continue
		}
		props, ok := a.InputSchema["properties"].(map[string]interface{})
		if !ok {
			return
		}
		field := map[string]interface{}{}
		if old, ok := props["requestType"].(map[string]interface{}); ok {
			for k, v := range old {
				field[k] = v
			}
		}
		field["type"] = "string"
		field["enum"] = enum

		newProps := make(map[string]interface{}, len(props))
		for k, v := range props {
			newProps[k] = v
		}
		newProps["requestType"] = field

		schema := make(map[string]interface{}, len(a.InputSchema))
		for k, v := range a.InputSchema {
			schema[k] = v
		}
		schema["properties"] = newProps
		r.Activities[i].InputSchema = schema
	}
}

// withDefaults fills missing activities and templates from the built-in registry.
func (r *ActivityRegistry) withDefaults() *ActivityRegistry {
	def := Default()
	for _, a := range def.Activities {
		if _, ok := r.Activity(a.TaskType); !ok {
			r.Activities = append(r.Activities, a)
		}
	}
	for _, t := range def.Templates {
		if _, ok := r.Template(t.ID); !ok {
			r.Templates = append(r.Templates, t)
		}
	}
	return r
}
