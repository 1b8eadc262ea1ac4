package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/validator"
)

// Engine interprets schemas against raw untyped input. It is pure and holds
// no per-request state; one instance serves every concurrent request.
type Engine struct {
	formats *validator.Validator
}

// NewEngine creates a validation engine. Format constraints (email, url) are
// delegated to the shared go-playground validator.
func NewEngine(formats *validator.Validator) *Engine {
	return &Engine{formats: formats}
}

// Validate checks raw input against the schema and returns either a fully
// normalized record or the complete ordered list of field errors. Validation
// never partially succeeds: a single failing field rejects the whole input.
// Input keys not present in the schema are ignored.
func (e *Engine) Validate(s Schema, input map[string]any) (Record, []apperr.FieldError) {
	rec := make(Record, len(s.Fields))
	var fieldErrs []apperr.FieldError

	for _, field := range s.Fields {
		raw, present := input[field.Name]
		if !present {
			if s.Mode == ModeCreate && field.Default != nil {
				rec[field.Name] = copyDefault(field.Default)
				continue
			}
			if field.Required {
				fieldErrs = append(fieldErrs, apperr.FieldError{Field: field.Name, Message: "is required"})
			}
			continue
		}

		value, fieldErr := e.normalize(field, raw)
		if fieldErr != nil {
			fieldErrs = append(fieldErrs, *fieldErr)
			continue
		}
		if value == nil {
			// Explicit null (or empty identifier) clears the field.
			rec[field.Name] = nil
			continue
		}
		if fieldErr := e.constrain(field, value); fieldErr != nil {
			fieldErrs = append(fieldErrs, *fieldErr)
			continue
		}
		rec[field.Name] = value
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	for _, check := range s.Checks {
		if fieldErr := check(rec); fieldErr != nil {
			fieldErrs = append(fieldErrs, *fieldErr)
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	return rec, nil
}

// normalize coerces the raw transport value to the field's semantic type.
// A nil result with a nil error means the field was explicitly cleared.
func (e *Engine) normalize(field Field, raw any) (any, *apperr.FieldError) {
	if raw == nil {
		if field.mustNotBeEmpty() {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must not be empty"}
		}
		return nil, nil
	}

	switch field.Type {
	case TypeString:
		text, ok := raw.(string)
		if !ok {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must be a string"}
		}
		if field.mustNotBeEmpty() && strings.TrimSpace(text) == "" {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must not be empty"}
		}
		return text, nil

	case TypeInt:
		switch typed := raw.(type) {
		case int:
			return typed, nil
		case float64:
			if typed != float64(int(typed)) {
				return nil, &apperr.FieldError{Field: field.Name, Message: "must be an integer"}
			}
			return int(typed), nil
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(typed))
			if err != nil {
				return nil, &apperr.FieldError{Field: field.Name, Message: "must be an integer"}
			}
			return parsed, nil
		}
		return nil, &apperr.FieldError{Field: field.Name, Message: "must be an integer"}

	case TypeFloat:
		switch typed := raw.(type) {
		case float64:
			return typed, nil
		case int:
			return float64(typed), nil
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
			if err != nil {
				return nil, &apperr.FieldError{Field: field.Name, Message: "must be a number"}
			}
			return parsed, nil
		}
		return nil, &apperr.FieldError{Field: field.Name, Message: "must be a number"}

	case TypeBool:
		switch typed := raw.(type) {
		case bool:
			return typed, nil
		case string:
			if strings.EqualFold(typed, "true") {
				return true, nil
			}
			if strings.EqualFold(typed, "false") {
				return false, nil
			}
		}
		return nil, &apperr.FieldError{Field: field.Name, Message: "must be a boolean"}

	case TypeIdentifier:
		text, ok := raw.(string)
		if !ok {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must be an identifier"}
		}
		// Empty string from a form is identical to absence: null, not a
		// format error. Applied uniformly to every optional identifier.
		if text == "" {
			if field.mustNotBeEmpty() {
				return nil, &apperr.FieldError{Field: field.Name, Message: "must not be empty"}
			}
			return nil, nil
		}
		parsed, err := uuid.Parse(text)
		if err != nil {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must be a valid identifier"}
		}
		return parsed, nil

	case TypeStringList:
		switch typed := raw.(type) {
		case []string:
			return append([]string{}, typed...), nil
		case []any:
			values := make([]string, 0, len(typed))
			for _, item := range typed {
				text, ok := item.(string)
				if !ok {
					return nil, &apperr.FieldError{Field: field.Name, Message: "must be a list of strings"}
				}
				values = append(values, text)
			}
			return values, nil
		}
		return nil, &apperr.FieldError{Field: field.Name, Message: "must be a list of strings"}

	case TypeMap:
		mapping, ok := raw.(map[string]any)
		if !ok {
			return nil, &apperr.FieldError{Field: field.Name, Message: "must be a key-value mapping"}
		}
		out := make(map[string]any, len(mapping))
		for key, value := range mapping {
			out[key] = value
		}
		return out, nil

	case TypeTime:
		switch typed := raw.(type) {
		case time.Time:
			return typed, nil
		case string:
			parsed, err := time.Parse(time.RFC3339, typed)
			if err != nil {
				return nil, &apperr.FieldError{Field: field.Name, Message: "must be an RFC 3339 timestamp"}
			}
			return parsed, nil
		}
		return nil, &apperr.FieldError{Field: field.Name, Message: "must be an RFC 3339 timestamp"}
	}

	return nil, &apperr.FieldError{Field: field.Name, Message: "has an unsupported type"}
}

// constrain applies the field's declared constraints in order, stopping at
// the first failure. Out-of-range values are rejected, never clamped.
func (e *Engine) constrain(field Field, value any) *apperr.FieldError {
	if len(field.Enum) > 0 {
		text, _ := value.(string)
		if !contains(field.Enum, text) {
			return &apperr.FieldError{
				Field:   field.Name,
				Message: "must be one of " + strings.Join(field.Enum, ", "),
			}
		}
	}

	if field.MaxLen > 0 {
		if text, ok := value.(string); ok && utf8.RuneCountInString(text) > field.MaxLen {
			return &apperr.FieldError{
				Field:   field.Name,
				Message: fmt.Sprintf("must be at most %d characters", field.MaxLen),
			}
		}
	}

	if field.Min != nil || field.Max != nil {
		numeric, ok := asFloat(value)
		if ok {
			if field.Min != nil && numeric < *field.Min {
				return &apperr.FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("must be at least %g", *field.Min),
				}
			}
			if field.Max != nil && numeric > *field.Max {
				return &apperr.FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("must be at most %g", *field.Max),
				}
			}
		}
	}

	if field.Format != "" {
		if text, ok := value.(string); ok && text != "" {
			if err := e.formats.Var(text, field.Format); err != nil {
				return &apperr.FieldError{
					Field:   field.Name,
					Message: "must be a valid " + field.Format,
				}
			}
		}
	}

	return nil
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	}
	return 0, false
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// copyDefault clones slice and map defaults so records never share the
// registry's backing storage.
func copyDefault(value any) any {
	switch typed := value.(type) {
	case []string:
		return append([]string{}, typed...)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return out
	default:
		return value
	}
}
