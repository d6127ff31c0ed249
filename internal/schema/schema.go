// Package schema defines the target field schema a document is mapped
// onto. Schemas arrive from an external configuration store as JSON
// objects whose key order is meaningful, so decoding preserves it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field value types a schema may declare.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// FieldSpec describes one target field.
type FieldSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`

	// DocumentField marks fields that should be extracted from the
	// document itself. Nil or true means document field; false marks
	// metadata-only fields excluded from extraction and confidence.
	DocumentField *bool `json:"document_field,omitempty"`

	// Role is an optional downstream tag (e.g. "original_document",
	// "beneficiary_user_id"); the pipeline carries it but never reads it.
	Role string `json:"role,omitempty"`
}

// IsDocumentField reports whether the field participates in extraction.
func (s FieldSpec) IsDocumentField() bool {
	return s.DocumentField == nil || *s.DocumentField
}

// FieldSchema is an ordered field name -> FieldSpec mapping, immutable
// for the duration of one mapping request.
type FieldSchema struct {
	names []string
	specs map[string]FieldSpec
}

// New builds a schema from an ordered list of (name, spec) pairs.
func New() *FieldSchema {
	return &FieldSchema{specs: make(map[string]FieldSpec)}
}

// Add appends a field. Re-adding an existing name overwrites the spec
// but keeps the original position.
func (fs *FieldSchema) Add(name string, spec FieldSpec) *FieldSchema {
	if _, ok := fs.specs[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.specs[name] = spec
	return fs
}

// Len returns the total number of fields.
func (fs *FieldSchema) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.names)
}

// Names returns all field names in declaration order.
func (fs *FieldSchema) Names() []string {
	out := make([]string, len(fs.names))
	copy(out, fs.names)
	return out
}

// Spec returns the spec for a field name.
func (fs *FieldSchema) Spec(name string) (FieldSpec, bool) {
	s, ok := fs.specs[name]
	return s, ok
}

// DocumentFields returns the names of fields with document_field != false,
// in declaration order.
func (fs *FieldSchema) DocumentFields() []string {
	if fs == nil {
		return nil
	}
	var out []string
	for _, name := range fs.names {
		if fs.specs[name].IsDocumentField() {
			out = append(out, name)
		}
	}
	return out
}

// DocumentSchema returns a copy of the schema restricted to document
// fields, used when serializing the target schema into an AI prompt.
func (fs *FieldSchema) DocumentSchema() *FieldSchema {
	out := New()
	for _, name := range fs.DocumentFields() {
		out.Add(name, fs.specs[name])
	}
	return out
}

// MarshalJSON emits the schema as a JSON object in declaration order.
func (fs *FieldSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fs.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fs.specs[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Standard
// map decoding would lose the order, so this walks the token stream.
func (fs *FieldSchema) UnmarshalJSON(data []byte) error {
	fs.names = nil
	fs.specs = make(map[string]FieldSpec)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("schema: expected field name, got %v", keyTok)
		}
		var spec FieldSpec
		if err := dec.Decode(&spec); err != nil {
			return fmt.Errorf("schema: field %q: %w", name, err)
		}
		fs.Add(name, spec)
	}

	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
