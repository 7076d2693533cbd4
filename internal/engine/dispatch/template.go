// internal/engine/dispatch/template.go
package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "blood-alert-workers/internal/common/errors"
)

// Placeholders
const (
	FieldHospitalName = "hospitalName"
	FieldBloodGroup   = "bloodGroup"
	FieldRequestType  = "requestType"
	FieldUrgencyScore = "urgencyScore"
)

var requiredFields = []string{FieldHospitalName, FieldBloodGroup, FieldRequestType, FieldUrgencyScore}

// AlertContext carries the values interpolated into an alert.
type AlertContext struct {
	HospitalName string
	BloodGroup   string
	RequestType  string
	UrgencyScore int
}

func (a AlertContext) value(field string) string {
	switch field {
	case FieldHospitalName:
		return singleLine(a.HospitalName)
	case FieldBloodGroup:
		return singleLine(a.BloodGroup)
	case FieldRequestType:
		return singleLine(a.RequestType)
	case FieldUrgencyScore:
		return strconv.Itoa(a.UrgencyScore)
	}
	return ""
}

type segment struct {
	literal string
	field   string
}

// Template is a parsed single-line alert body with {{field}} placeholders.
type Template struct {
	id       string
	segments []segment
}

// ParseTemplate validates body and returns a ready-to-render template.
// Every placeholder must be known and all four fields must appear.
func ParseTemplate(id, body string) (*Template, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewTemplateInvalidError(id, "empty body")
	}
	if strings.ContainsAny(body, "\r\n") {
		return nil, apperrors.NewTemplateInvalidError(id, "body must be a single line")
	}

	var segments []segment
	seen := make(map[string]bool, len(requiredFields))
	rest := body
	for len(rest) > 0 {
		open := strings.Index(rest, "{{")
		if open < 0 {
			if strings.ContainsAny(rest, "{}") {
				return nil, apperrors.NewTemplateInvalidError(id, "unbalanced braces")
			}
			segments = append(segments, segment{literal: rest})
			break
		}
		if strings.ContainsAny(rest[:open], "{}") {
			return nil, apperrors.NewTemplateInvalidError(id, "unbalanced braces")
		}
		if open > 0 {
			segments = append(segments, segment{literal: rest[:open]})
		}

		closeIdx := strings.Index(rest[open+2:], "}}")
		if closeIdx < 0 {
			return nil, apperrors.NewTemplateInvalidError(id, "unbalanced braces")
		}
		name := strings.TrimSpace(rest[open+2 : open+2+closeIdx])
		if !isKnownField(name) {
			return nil, apperrors.NewTemplateInvalidError(id, fmt.Sprintf("unknown placeholder %q", name))
		}
		seen[name] = true
		segments = append(segments, segment{field: name})
		rest = rest[open+2+closeIdx+2:]
	}

	for _, f := range requiredFields {
		if !seen[f] {
			return nil, apperrors.NewTemplateInvalidError(id, fmt.Sprintf("missing placeholder %q", f))
		}
	}

	return &Template{id: id, segments: segments}, nil
}

// MustParseTemplate is ParseTemplate for built-in bodies; it panics on error.
func MustParseTemplate(id, body string) *Template {
	t, err := ParseTemplate(id, body)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) ID() string { return t.id }

// Render interpolates ac. The result is always a single line.
func (t *Template) Render(ac AlertContext) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.field != "" {
			b.WriteString(ac.value(s.field))
			continue
		}
		b.WriteString(s.literal)
	}
	return b.String()
}

func isKnownField(name string) bool {
	for _, f := range requiredFields {
		if f == name {
			return true
		}
	}
	return false
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
