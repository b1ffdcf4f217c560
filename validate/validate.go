package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("invalid input")

// Reason classifies why a field was rejected.
type Reason string

const (
	ReasonRequired Reason = "required"
	ReasonTooLong  Reason = "too_long"
	ReasonFormat   Reason = "invalid_format"
)

// ValidationError names the first field that failed and why.
type ValidationError struct {
	Field  string
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Field declares the constraints for one input value.
type Field struct {
	Name      string
	Required  bool
	MaxLength int    // in characters
	MaxBytes  int    // in bytes, for inputs with a hard byte limit downstream
	Pattern   string // RE2 syntax, anchored by the caller
	Trim      bool
	Lower     bool
}

type rule struct {
	reason Reason
	schema *jschema.Schema
}

type compiledField struct {
	Field
	rules []rule
}

// Schema validates a fixed, ordered set of fields. It is immutable and safe
// for concurrent use once built.
type Schema struct {
	name   string
	fields []compiledField
}

// NewSchema compiles one JSON schema per field constraint.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{name: name, fields: make([]compiledField, 0, len(fields))}
	for _, f := range fields {
		cf := compiledField{Field: f}

		if f.Required {
			r, err := compileRule(name, f.Name, "required", map[string]any{"type": "string", "minLength": 1})
			if err != nil {
				return nil, err
			}
			cf.rules = append(cf.rules, rule{reason: ReasonRequired, schema: r})
		}
		if f.MaxLength > 0 {
			r, err := compileRule(name, f.Name, "length", map[string]any{"type": "string", "maxLength": f.MaxLength})
			if err != nil {
				return nil, err
			}
			cf.rules = append(cf.rules, rule{reason: ReasonTooLong, schema: r})
		}
		if f.Pattern != "" {
			r, err := compileRule(name, f.Name, "format", map[string]any{"type": "string", "pattern": f.Pattern})
			if err != nil {
				return nil, err
			}
			cf.rules = append(cf.rules, rule{reason: ReasonFormat, schema: r})
		}

		s.fields = append(s.fields, cf)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func compileRule(schemaName, field, kind string, doc map[string]any) (*jschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	parsed, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s.json", schemaName, field, kind)
	c := jschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", url, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return sch, nil
}

// Validate checks values field by field in declaration order and stops at
// the first failure. On success it returns the normalised values for the
// declared fields only.
func (s *Schema) Validate(values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		v := values[f.Name]
		if f.Trim {
			v = strings.TrimSpace(v)
		}
		if f.Lower {
			v = strings.ToLower(v)
		}

		if v == "" && !f.Required {
			out[f.Name] = v
			continue
		}

		for _, r := range f.rules {
			if err := r.schema.Validate(v); err != nil {
				return nil, &ValidationError{Field: f.Name, Reason: r.reason}
			}
		}
		if f.MaxBytes > 0 && len(v) > f.MaxBytes {
			return nil, &ValidationError{Field: f.Name, Reason: ReasonTooLong}
		}

		out[f.Name] = v
	}
	return out, nil
}

// Fields lists the declared field names in order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}
