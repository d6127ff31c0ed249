package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestUnmarshalPreservesOrder(t *testing.T) {
	raw := `{
		"rollNumber":  {"type": "string", "required": true},
		"studentName": {"type": "string", "required": true},
		"percentage":  {"type": "number"},
		"internalRef": {"type": "string", "document_field": false, "role": "beneficiary_user_id"}
	}`

	var fs FieldSchema
	require.NoError(t, json.Unmarshal([]byte(raw), &fs))

	assert.Equal(t, []string{"rollNumber", "studentName", "percentage", "internalRef"}, fs.Names())
	assert.Equal(t, []string{"rollNumber", "studentName", "percentage"}, fs.DocumentFields())

	spec, ok := fs.Spec("internalRef")
	require.True(t, ok)
	assert.False(t, spec.IsDocumentField())
	assert.Equal(t, "beneficiary_user_id", spec.Role)

	spec, ok = fs.Spec("percentage")
	require.True(t, ok)
	assert.True(t, spec.IsDocumentField())
	assert.Equal(t, TypeNumber, spec.Type)
}

func TestMarshalRoundTrip(t *testing.T) {
	fs := New().
		Add("b", FieldSpec{Type: TypeString}).
		Add("a", FieldSpec{Type: TypeInteger, Required: true}).
		Add("meta", FieldSpec{Type: TypeString, DocumentField: boolPtr(false)})

	out, err := json.Marshal(fs)
	require.NoError(t, err)

	var back FieldSchema
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, []string{"b", "a", "meta"}, back.Names())
	assert.Equal(t, []string{"b", "a"}, back.DocumentFields())
}

func TestDocumentSchema(t *testing.T) {
	fs := New().
		Add("name", FieldSpec{Type: TypeString}).
		Add("hidden", FieldSpec{Type: TypeString, DocumentField: boolPtr(false)})

	doc := fs.DocumentSchema()
	assert.Equal(t, []string{"name"}, doc.Names())
	assert.Equal(t, 1, doc.Len())
}

func TestUnmarshalRejectsNonObject(t *testing.T) {
	var fs FieldSchema
	assert.Error(t, json.Unmarshal([]byte(`["not","an","object"]`), &fs))
}
