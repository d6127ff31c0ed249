package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelResponsePlainObject(t *testing.T) {
	result := ParseModelResponse(`{"name": "ravi kumar", "rollNumber": "12345"}`)
	require.NotNil(t, result)
	assert.Equal(t, "ravi kumar", result["name"])
	assert.Equal(t, "12345", result["rollNumber"])
}

func TestParseModelResponseCodeFenced(t *testing.T) {
	raw := "```json\n{\"name\": \"ravi kumar\"}\n```"
	result := ParseModelResponse(raw)
	require.NotNil(t, result)
	assert.Equal(t, "ravi kumar", result["name"])
}

func TestParseModelResponsePrefixedProse(t *testing.T) {
	raw := `Here is the extracted data you asked for:
{"name": "ravi kumar", "percentage": 87.5}`
	result := ParseModelResponse(raw)
	require.NotNil(t, result)
	assert.Equal(t, 87.5, result["percentage"])
}

func TestParseModelResponsePicksLargestCandidate(t *testing.T) {
	raw := `{"note": "partial"} some text {"name": "ravi kumar", "rollNumber": "12345", "board": "cbse"}`
	result := ParseModelResponse(raw)
	require.NotNil(t, result)
	assert.Len(t, result, 3)
	assert.Equal(t, "cbse", result["board"])
}

func TestParseModelResponseBracesInsideStrings(t *testing.T) {
	result := ParseModelResponse(`{"remark": "value with } brace", "name": "ravi"}`)
	require.NotNil(t, result)
	assert.Equal(t, "value with } brace", result["remark"])
}

func TestParseModelResponseProviderEnvelope(t *testing.T) {
	assert.Nil(t, ParseModelResponse(`{"generation": "the mapped data is ..."}`))
	assert.Nil(t, ParseModelResponse(`{"content": "..."}`))
	assert.Nil(t, ParseModelResponse(`{"choices": []}`))
}

func TestParseModelResponseNothingUsable(t *testing.T) {
	assert.Nil(t, ParseModelResponse(""))
	assert.Nil(t, ParseModelResponse("I could not find any fields."))
	assert.Nil(t, ParseModelResponse("{}"))
	assert.Nil(t, ParseModelResponse(`{"broken": `))
}
