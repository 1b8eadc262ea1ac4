// Package schema implements the declarative validation-and-mutation contract
// layer. Each entity kind is described by an ordered field-descriptor table;
// one generic engine interprets the tables to normalize, default, and
// validate raw input before anything touches the store.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies one domain entity described by the registry.
type Kind string

const (
	KindContact       Kind = "contact"
	KindConversation  Kind = "conversation"
	KindMessage       Kind = "message"
	KindAIPrompt      Kind = "ai_prompt"
	KindPipeline      Kind = "pipeline"
	KindPipelineStage Kind = "pipeline_stage"
	KindCalendarEvent Kind = "calendar_event"
	KindDocument      Kind = "document"
	KindIntegration   Kind = "integration"
	KindSettings      Kind = "settings"
)

// Record is a validated, defaulted, type-coerced representation of an entity.
// In create mode every default-bearing field is present; in update mode it is
// a sparse patch holding exactly the fields the caller supplied. A key mapped
// to nil means "set to null".
type Record map[string]any

// Has reports whether the field is part of the record (including explicit null).
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// String returns the field as a string, or "" when absent or null.
func (r Record) String(name string) string {
	value, _ := r[name].(string)
	return value
}

// StringPtr returns the field as *string, or nil when absent or null.
func (r Record) StringPtr(name string) *string {
	value, ok := r[name].(string)
	if !ok {
		return nil
	}
	return &value
}

// Bool returns the field as a bool, or false when absent or null.
func (r Record) Bool(name string) bool {
	value, _ := r[name].(bool)
	return value
}

// Int returns the field as an int, or 0 when absent or null.
func (r Record) Int(name string) int {
	value, _ := r[name].(int)
	return value
}

// Float returns the field as a float64, or 0 when absent or null.
func (r Record) Float(name string) float64 {
	value, _ := r[name].(float64)
	return value
}

// ID returns the field as an identifier, or nil when absent or null.
func (r Record) ID(name string) *uuid.UUID {
	value, ok := r[name].(uuid.UUID)
	if !ok {
		return nil
	}
	return &value
}

// Strings returns the field as a string list, or nil when absent or null.
func (r Record) Strings(name string) []string {
	value, _ := r[name].([]string)
	return value
}

// Map returns the field as a key-value mapping, or nil when absent or null.
func (r Record) Map(name string) map[string]any {
	value, _ := r[name].(map[string]any)
	return value
}

// Time returns the field as a time.Time, or the zero time when absent or null.
func (r Record) Time(name string) time.Time {
	value, _ := r[name].(time.Time)
	return value
}
