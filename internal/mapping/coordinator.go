package mapping

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"docpipe/internal/logger"
	"docpipe/internal/schema"
)

// Processing methods reported in MappingResult.
const (
	ProcessingMethodAI      = "ai"
	ProcessingMethodKeyword = "keyword"
	// ProcessingMethodHybrid is reserved for a coordinator variant that
	// merges keyword results into a partial AI result. The current
	// coordinator treats a non-empty AI result as exclusive and never
	// reports it.
	ProcessingMethodHybrid = "hybrid"
)

// MappingResult is the terminal output of the pipeline, consumed by the
// credential-issuance layer.
type MappingResult struct {
	MappedData       map[string]any `json:"mapped_data"`
	MissingFields    []string       `json:"missing_fields"`
	Confidence       float64        `json:"confidence"`
	ProcessingMethod string         `json:"processing_method"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// Coordinator runs AI-first schema mapping with the keyword engine as
// fallback. It never fails: the worst case is confidence 0 with
// populated warnings.
type Coordinator struct {
	ai      AIMapper
	keyword *KeywordEngine
	log     zerolog.Logger
}

// NewCoordinator creates a coordinator with the default keyword engine.
// ai may be nil when no AI backend is available at all.
func NewCoordinator(ai AIMapper) *Coordinator {
	return NewCoordinatorWithDeps(ai, NewKeywordEngine())
}

// NewCoordinatorWithDeps creates a coordinator with explicit
// dependencies (for testing).
func NewCoordinatorWithDeps(ai AIMapper, keyword *KeywordEngine) *Coordinator {
	return &Coordinator{
		ai:      ai,
		keyword: keyword,
		log:     logger.WithComponent("mapping-coordinator"),
	}
}

// MapAfterOCR maps extracted text onto the schema for one document.
// docType and docSubType identify the document template for logging.
func (c *Coordinator) MapAfterOCR(ctx context.Context, text, docType, docSubType string, fields *schema.FieldSchema) *MappingResult {
	log := logger.WithDocumentType(docType, docSubType)

	if fields.Len() == 0 {
		log.Warn().Msg("No schema fields configured for document type")
		return &MappingResult{
			MappedData:       map[string]any{},
			MissingFields:    []string{},
			Confidence:       0,
			ProcessingMethod: ProcessingMethodKeyword,
			Warnings:         []string{"no schema fields configured for this document type"},
		}
	}

	var warnings []string
	var raw map[string]any
	method := ProcessingMethodKeyword

	if c.ai != nil && c.ai.IsConfigured() {
		mapped, err := c.ai.MapTextToSchema(ctx, text, fields)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("provider", c.ai.ProviderName()).
				Msg("AI mapping failed, falling back to keyword mapping")
			warnings = append(warnings, fmt.Sprintf("AI mapping failed: %v", err))
		case len(mapped) > 0:
			raw = mapped
			method = ProcessingMethodAI
		default:
			log.Info().Str("provider", c.ai.ProviderName()).
				Msg("AI mapping returned no usable result, falling back to keyword mapping")
		}
	}

	if raw == nil {
		raw = c.keyword.MapTextToSchema(text, fields)
	}

	mappedData := make(map[string]any)
	for name, value := range raw {
		spec, known := fields.Spec(name)
		if !known {
			continue
		}
		if value == nil {
			continue
		}
		coerced, ok, warning := CoerceValue(value, name, spec)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if !ok {
			continue
		}
		mappedData[name] = coerced
	}

	docFields := fields.DocumentFields()
	present := 0
	var missing []string
	var requiredMissing []string
	for _, name := range docFields {
		if isPresent(mappedData[name]) {
			present++
			continue
		}
		missing = append(missing, name)
		if spec, _ := fields.Spec(name); spec.Required {
			requiredMissing = append(requiredMissing, name)
		}
	}
	if missing == nil {
		missing = []string{}
	}

	confidence := 0.0
	if len(docFields) > 0 {
		confidence = math.Round(float64(present)/float64(len(docFields))*100) / 100
	}

	if len(requiredMissing) > 0 {
		log.Warn().
			Strs("required_missing", requiredMissing).
			Msg("Required document fields could not be extracted")
	}

	log.Info().
		Str("method", method).
		Int("mapped", len(mappedData)).
		Int("missing", len(missing)).
		Float64("confidence", confidence).
		Msg("Schema mapping completed")

	return &MappingResult{
		MappedData:       mappedData,
		MissingFields:    missing,
		Confidence:       confidence,
		ProcessingMethod: method,
		Warnings:         warnings,
	}
}

// isPresent reports whether a mapped value counts toward confidence:
// non-nil and a non-empty trimmed string form.
func isPresent(v any) bool {
	if v == nil {
		return false
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v)) != ""
}
