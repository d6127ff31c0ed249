package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docpipe/internal/schema"
)

// stubMapper is a canned AIMapper for coordinator tests.
type stubMapper struct {
	configured bool
	response   string
	err        error
}

func (s *stubMapper) IsConfigured() bool    { return s.configured }
func (s *stubMapper) ProviderName() string  { return "stub" }
func (s *stubMapper) MapTextToSchema(_ context.Context, _ string, _ *schema.FieldSchema) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return ParseModelResponse(s.response), nil
}

func TestCoordinatorEmptySchema(t *testing.T) {
	c := NewCoordinator(nil)
	result := c.MapAfterOCR(context.Background(), "any text", "certificate", "marksheet", schema.New())

	require.NotNil(t, result)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.MappedData)
	assert.NotEmpty(t, result.Warnings)
}

func TestCoordinatorAIResultAccepted(t *testing.T) {
	ai := &stubMapper{
		configured: true,
		response:   `{"name": "Ravi Kumar", "percentage": 87.5}`,
	}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "irrelevant", "certificate", "marksheet", marksheetSchema())

	assert.Equal(t, ProcessingMethodAI, result.ProcessingMethod)
	assert.Equal(t, "Ravi Kumar", result.MappedData["name"])
	assert.Equal(t, 87.5, result.MappedData["percentage"])
}

func TestCoordinatorEnvelopeFallsThroughToKeyword(t *testing.T) {
	ai := &stubMapper{
		configured: true,
		response:   `{"generation": "I extracted the following fields..."}`,
	}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "Percentage: 87.5%", "certificate", "marksheet", marksheetSchema())

	assert.Equal(t, ProcessingMethodKeyword, result.ProcessingMethod)
	assert.Equal(t, 87.5, result.MappedData["percentage"])
}

func TestCoordinatorAIErrorFallsThroughWithWarning(t *testing.T) {
	ai := &stubMapper{configured: true, err: assert.AnError}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "Percentage: 87.5%", "certificate", "marksheet", marksheetSchema())

	assert.Equal(t, ProcessingMethodKeyword, result.ProcessingMethod)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 87.5, result.MappedData["percentage"])
}

func TestCoordinatorUnconfiguredAIUsesKeyword(t *testing.T) {
	c := NewCoordinator(&stubMapper{configured: false})
	result := c.MapAfterOCR(context.Background(), "Name: Ravi Kumar", "certificate", "marksheet", marksheetSchema())
	assert.Equal(t, ProcessingMethodKeyword, result.ProcessingMethod)
}

func TestCoordinatorRequiredFieldMissingIsNotFailure(t *testing.T) {
	// "name" is required but absent from both text and AI result.
	ai := &stubMapper{configured: true, response: `{"percentage": 87.5}`}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "no names here", "certificate", "marksheet", marksheetSchema())

	require.NotNil(t, result)
	assert.Contains(t, result.MissingFields, "name")
	assert.NotContains(t, result.MappedData, "name")
	// 1 of 3 document fields present (name, rollNumber, percentage).
	assert.InDelta(t, 0.33, result.Confidence, 1e-9)
}

func TestCoordinatorConfidenceBounds(t *testing.T) {
	ai := &stubMapper{
		configured: true,
		response:   `{"name": "Ravi Kumar", "rollNumber": "4521", "percentage": 87.5, "beneficiaryUserId": "abc"}`,
	}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "irrelevant", "certificate", "marksheet", marksheetSchema())

	// Metadata fields never count toward confidence.
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.MissingFields)
}

func TestCoordinatorDropsUnknownAndUncoercibleFields(t *testing.T) {
	ai := &stubMapper{
		configured: true,
		response:   `{"name": "Ravi Kumar", "percentage": "---", "unknownField": "x"}`,
	}
	c := NewCoordinator(ai)

	result := c.MapAfterOCR(context.Background(), "irrelevant", "certificate", "marksheet", marksheetSchema())

	assert.NotContains(t, result.MappedData, "unknownField")
	assert.NotContains(t, result.MappedData, "percentage")
	assert.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.MissingFields, "percentage")
}

func TestCoordinatorMissingFieldsCoverDocumentFields(t *testing.T) {
	c := NewCoordinator(nil)
	result := c.MapAfterOCR(context.Background(), "nothing matches", "certificate", "marksheet", marksheetSchema())

	assert.Zero(t, result.Confidence)
	assert.ElementsMatch(t, []string{"name", "rollNumber", "percentage"}, result.MissingFields)
}
