package project

import (
	"encoding/json"
	"fmt"
)

// Field names a metadata field.
type Field string

// Field values match the JSON keys of Metadata.
const (
	// FieldName is Metadata.Name.
	FieldName Field = "name"
	// FieldDescription is Metadata.Description.
	FieldDescription Field = "description"
	// FieldVersion is Metadata.Version.
	FieldVersion Field = "version"
	// FieldAuthor is Metadata.Author.
	FieldAuthor Field = "author"
	// FieldNamespace is Metadata.Namespace.
	FieldNamespace Field = "namespace"
)

// Update is a single typed metadata field replacement. The set of implementations is
// closed: SetName, SetDescription, SetVersion, SetAuthor and SetNamespace.
type Update interface {
	Field() Field
	apply(m *Metadata)
}

// SetName replaces Metadata.Name.
type SetName string

// SetDescription replaces Metadata.Description.
type SetDescription string

// SetVersion replaces Metadata.Version.
type SetVersion Version

// SetAuthor replaces Metadata.Author.
type SetAuthor string

// SetNamespace replaces Metadata.Namespace.
type SetNamespace string

// Field returns FieldName.
func (SetName) Field() Field { return FieldName }

// Field returns FieldDescription.
func (SetDescription) Field() Field { return FieldDescription }

// Field returns FieldVersion.
func (SetVersion) Field() Field { return FieldVersion }

// Field returns FieldAuthor.
func (SetAuthor) Field() Field { return FieldAuthor }

// Field returns FieldNamespace.
func (SetNamespace) Field() Field { return FieldNamespace }

func (u SetName) apply(m *Metadata)        { m.Name = string(u) }
func (u SetDescription) apply(m *Metadata) { m.Description = string(u) }
func (u SetVersion) apply(m *Metadata)     { m.Version = Version(u) }
func (u SetAuthor) apply(m *Metadata)      { m.Author = string(u) }
func (u SetNamespace) apply(m *Metadata)   { m.Namespace = string(u) }

// DecodeUpdate builds an Update from a field name and its JSON-encoded value. String
// fields take a JSON string; version takes either a three-element integer array or a
// "major.minor.patch" string.
func DecodeUpdate(field string, value json.RawMessage) (Update, error) {
	switch Field(field) {
	case FieldName, FieldDescription, FieldAuthor, FieldNamespace:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("field %q takes a string: %w", field, err)
		}
		switch Field(field) {
		case FieldName:
			return SetName(s), nil
		case FieldDescription:
			return SetDescription(s), nil
		case FieldAuthor:
			return SetAuthor(s), nil
		default:
			return SetNamespace(s), nil
		}
	case FieldVersion:
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			v, err := ParseVersion(s)
			if err != nil {
				return nil, err
			}
			return SetVersion(v), nil
		}
		var parts []int
		if err := json.Unmarshal(value, &parts); err != nil {
			return nil, fmt.Errorf("field %q takes [major, minor, patch] or \"major.minor.patch\": %w", field, err)
		}
		if len(parts) != 3 {
			return nil, fmt.Errorf("field %q needs exactly three components, got %d", field, len(parts))
		}
		v := Version{parts[0], parts[1], parts[2]}
		for i, n := range v {
			if n < 0 {
				return nil, fmt.Errorf("field %q: component %d is negative", field, i+1)
			}
		}
		return SetVersion(v), nil
	default:
		return nil, fmt.Errorf("unknown metadata field %q", field)
	}
}
