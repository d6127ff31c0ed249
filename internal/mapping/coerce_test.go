package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docpipe/internal/schema"
)

func TestCoerceNumericStripsLeadingMinus(t *testing.T) {
	value, ok, warning := CoerceValue("-223414178889127", "certificateNumber", schema.FieldSpec{Type: schema.TypeInteger})
	assert.True(t, ok)
	assert.Empty(t, warning)
	assert.Equal(t, int64(223414178889127), value)
}

func TestCoerceNumericDashesOnlyYieldNull(t *testing.T) {
	for _, raw := range []string{"---", "-"} {
		value, ok, warning := CoerceValue(raw, "marks", schema.FieldSpec{Type: schema.TypeInteger})
		assert.Nil(t, value, "raw %q", raw)
		assert.False(t, ok, "raw %q", raw)
		assert.NotEmpty(t, warning, "raw %q", raw)
	}
}

func TestCoerceNumber(t *testing.T) {
	value, ok, _ := CoerceValue("87.5%", "percentage", schema.FieldSpec{Type: schema.TypeNumber})
	assert.True(t, ok)
	assert.Equal(t, 87.5, value)

	value, ok, _ = CoerceValue(float64(-42.4), "marks", schema.FieldSpec{Type: schema.TypeInteger})
	assert.True(t, ok)
	assert.Equal(t, int64(42), value)

	_, ok, warning := CoerceValue("not a number", "marks", schema.FieldSpec{Type: schema.TypeNumber})
	assert.False(t, ok)
	assert.NotEmpty(t, warning)
}

func TestCoerceBoolean(t *testing.T) {
	truthy := []any{"true", "yes", "Y", "1", true}
	for _, raw := range truthy {
		value, ok, _ := CoerceValue(raw, "passed", schema.FieldSpec{Type: schema.TypeBoolean})
		assert.True(t, ok, "raw %v", raw)
		assert.Equal(t, true, value, "raw %v", raw)
	}

	falsy := []any{"false", "No", "n", "0", false}
	for _, raw := range falsy {
		value, ok, _ := CoerceValue(raw, "passed", schema.FieldSpec{Type: schema.TypeBoolean})
		assert.True(t, ok, "raw %v", raw)
		assert.Equal(t, false, value, "raw %v", raw)
	}

	_, ok, warning := CoerceValue("maybe", "passed", schema.FieldSpec{Type: schema.TypeBoolean})
	assert.False(t, ok)
	assert.NotEmpty(t, warning)
}

func TestCoerceStringTrims(t *testing.T) {
	value, ok, _ := CoerceValue("  ravi kumar  ", "name", schema.FieldSpec{Type: schema.TypeString})
	assert.True(t, ok)
	assert.Equal(t, "ravi kumar", value)

	_, ok, _ = CoerceValue("   ", "name", schema.FieldSpec{Type: schema.TypeString})
	assert.False(t, ok)
}

func TestCoerceObjectPassesThrough(t *testing.T) {
	original := map[string]any{"nested": true}
	value, ok, _ := CoerceValue(original, "extras", schema.FieldSpec{Type: schema.TypeObject})
	assert.True(t, ok)
	assert.Equal(t, original, value)
}
