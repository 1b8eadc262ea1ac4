package schema

import "crmhub_backend/platform/apperr"

// FieldType is the semantic type a field normalizes to.
type FieldType int

const (
	// TypeString normalizes to string.
	TypeString FieldType = iota
	// TypeInt normalizes to int. Numeric strings and whole JSON numbers coerce.
	TypeInt
	// TypeFloat normalizes to float64. Numeric strings coerce.
	TypeFloat
	// TypeBool normalizes to bool. The strings "true"/"false" coerce.
	TypeBool
	// TypeIdentifier normalizes to uuid.UUID. For optional fields an empty
	// string is treated identically to absence and normalizes to null.
	TypeIdentifier
	// TypeStringList normalizes to []string.
	TypeStringList
	// TypeMap normalizes to a flat map[string]any.
	TypeMap
	// TypeTime normalizes to time.Time from an RFC 3339 string.
	TypeTime
)

// Field describes one entity field: its type, requiredness, default, and
// constraints, applied in declared order with per-field short-circuiting.
type Field struct {
	Name      string
	Type      FieldType
	Required  bool
	Immutable bool      // excluded from the derived update schema
	NonEmpty  bool      // a present value must not be null or blank; set by ForUpdate
	Default   any       // applied in create mode when the field is absent
	Enum      []string  // allowed values, no coercion
	MaxLen    int       // maximum string length, 0 = unbounded
	Min       *float64  // inclusive lower bound for numeric fields
	Max       *float64  // inclusive upper bound for numeric fields
	Format    string    // go-playground format tag, e.g. "email", "url"
}

// mustNotBeEmpty reports whether a present null or blank value is invalid for
// the field. Required covers create mode; NonEmpty carries the same rule into
// the derived update schema, where the field may be omitted but never cleared.
func (f Field) mustNotBeEmpty() bool {
	return f.Required || f.NonEmpty
}

// Mode selects between the create schema (defaults applied, required fields
// enforced) and the mechanically derived update schema (sparse, no defaults).
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// CrossCheck validates a relationship between fields after every field-level
// constraint passed. Checks must tolerate sparse update records.
type CrossCheck func(Record) *apperr.FieldError

// Schema is the ordered field-by-field description of one entity kind in one mode.
type Schema struct {
	Kind   Kind
	Mode   Mode
	Fields []Field
	Checks []CrossCheck
}

// ForUpdate mechanically derives the update schema: identity and immutable
// fields are removed, every remaining field becomes optional, and defaults
// are stripped so omitted fields are never re-applied. Create-required fields
// keep their non-empty rule: omitting them is fine, clearing them is not.
// Deriving instead of hand-duplicating guarantees the two variants cannot
// drift apart.
func (s Schema) ForUpdate() Schema {
	fields := make([]Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Immutable {
			continue
		}
		field.NonEmpty = field.Required
		field.Required = false
		field.Default = nil
		fields = append(fields, field)
	}
	return Schema{Kind: s.Kind, Mode: ModeUpdate, Fields: fields, Checks: s.Checks}
}

func bound(value float64) *float64 {
	return &value
}
