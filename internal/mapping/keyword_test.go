package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docpipe/internal/schema"
)

func marksheetSchema() *schema.FieldSchema {
	metadata := false
	fs := schema.New()
	fs.Add("name", schema.FieldSpec{Type: schema.TypeString, Required: true})
	fs.Add("rollNumber", schema.FieldSpec{Type: schema.TypeString})
	fs.Add("percentage", schema.FieldSpec{Type: schema.TypeNumber})
	fs.Add("beneficiaryUserId", schema.FieldSpec{Type: schema.TypeString, DocumentField: &metadata})
	return fs
}

func TestKeywordExtractsPercentage(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("percentage", schema.FieldSpec{Type: schema.TypeNumber})

	result := engine.MapTextToSchema("Marks Statement\nPercentage: 87.5%\n", fs)

	require.Contains(t, result, "percentage")
	assert.Equal(t, 87.5, result["percentage"])
}

func TestKeywordNumericRangeRejectsImplausible(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("percentage", schema.FieldSpec{Type: schema.TypeNumber})

	// 870.5 is outside the 0-100 percentage band.
	result := engine.MapTextToSchema("Percentage: 870.5", fs)
	assert.NotContains(t, result, "percentage")
}

func TestKeywordGPABand(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("cgpa", schema.FieldSpec{Type: schema.TypeNumber})

	result := engine.MapTextToSchema("CGPA - 8.2 out of 10", fs)
	require.Contains(t, result, "cgpa")
	assert.Equal(t, 8.2, result["cgpa"])
}

func TestKeywordLabelShapes(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("name", schema.FieldSpec{Type: schema.TypeString})

	for _, text := range []string{
		"Candidate Name: Ravi Kumar",
		"Candidate Name - Ravi Kumar",
		"Candidate Name\nRavi Kumar",
	} {
		result := engine.MapTextToSchema(text, fs)
		require.Contains(t, result, "name", "text %q", text)
		assert.Equal(t, "Ravi Kumar", result["name"], "text %q", text)
	}
}

func TestKeywordRejectsFieldLabelCapture(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("rollNumber", schema.FieldSpec{Type: schema.TypeString})

	// The capture after "roll no" is another label, not a value.
	result := engine.MapTextToSchema("Roll No: Enter your roll number", fs)
	assert.NotContains(t, result, "rollNumber")
}

func TestKeywordSkipsMetadataAndObjectFields(t *testing.T) {
	engine := NewKeywordEngine()
	fs := marksheetSchema()
	fs.Add("rawDocument", schema.FieldSpec{Type: schema.TypeObject})

	result := engine.MapTextToSchema("beneficiaryUserId: abc-123\nrawDocument: x", fs)
	assert.NotContains(t, result, "beneficiaryUserId")
	assert.NotContains(t, result, "rawDocument")
}

func TestKeywordNoMatchYieldsAbsentField(t *testing.T) {
	engine := NewKeywordEngine()
	result := engine.MapTextToSchema("completely unrelated text", marksheetSchema())
	assert.NotContains(t, result, "percentage")
	assert.NotContains(t, result, "rollNumber")
}

func TestKeywordProximityFallback(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("percentage", schema.FieldSpec{Type: schema.TypeNumber})

	// No label pattern matches, but 92.4 sits within the proximity
	// window of the "percentage" synonym occurrence.
	result := engine.MapTextToSchema("secured an aggregate percentage in all subjects of 92.4 overall", fs)
	require.Contains(t, result, "percentage")
	assert.Equal(t, 92.4, result["percentage"])
}

func TestKeywordDeterministic(t *testing.T) {
	engine := NewKeywordEngine()
	text := "Name: Ravi Kumar\nRoll No: 4521\nPercentage: 87.5%"
	first := engine.MapTextToSchema(text, marksheetSchema())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.MapTextToSchema(text, marksheetSchema()))
	}
}

func TestSynonymOverridesReplaceDefaults(t *testing.T) {
	table := DefaultSynonyms().MergedWith(map[string][]string{
		"Roll Number": {"hall ticket no"},
	})

	syns := table.Lookup("rollNumber")
	assert.Equal(t, "rollnumber", syns[0])
	assert.Contains(t, syns, "hall ticket no")
	assert.NotContains(t, syns, "roll no")

	engine := NewKeywordEngineWithSynonyms(table)
	fs := schema.New()
	fs.Add("rollNumber", schema.FieldSpec{Type: schema.TypeString})
	result := engine.MapTextToSchema("Hall Ticket No: HT-2024-118", fs)
	require.Contains(t, result, "rollNumber")
	assert.Equal(t, "HT-2024-118", result["rollNumber"])
}

func TestKeywordPreservesValueCasing(t *testing.T) {
	engine := NewKeywordEngine()
	fs := schema.New()
	fs.Add("name", schema.FieldSpec{Type: schema.TypeString})
	fs.Add("board", schema.FieldSpec{Type: schema.TypeString})

	result := engine.MapTextToSchema("NAME: Ravi KUMAR\nBoard: CBSE Delhi", fs)

	require.Contains(t, result, "name")
	assert.Equal(t, "Ravi KUMAR", result["name"])
	require.Contains(t, result, "board")
	assert.Equal(t, "CBSE Delhi", result["board"])
}
