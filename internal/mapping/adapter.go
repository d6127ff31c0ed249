// Package mapping turns raw extracted text into schema-conformant data.
// An AI-backed mapper runs first; a deterministic keyword engine is the
// fallback when the AI is unconfigured, unreachable, or returns nothing
// usable.
package mapping

import (
	"context"
	"fmt"

	"docpipe/internal/config"
	"docpipe/internal/schema"
)

// AIMapper is the strategy interface over LLM-backed schema mapping.
// MapTextToSchema returns (nil, nil) when the model produced no usable
// result; callers must treat that as "fall through to keyword mapping",
// never as an error.
type AIMapper interface {
	// IsConfigured reports whether credentials are present. It never
	// performs a network call.
	IsConfigured() bool

	// ProviderName returns the configuration key for this backend.
	ProviderName() string

	// MapTextToSchema asks the model to map text onto the schema's
	// document fields and parses the response into field -> raw value.
	MapTextToSchema(ctx context.Context, text string, fields *schema.FieldSchema) (map[string]any, error)
}

// NewAIMapper selects the mapping backend named by AI_PROVIDER.
func NewAIMapper(ctx context.Context, cfg *config.Config) (AIMapper, error) {
	const op = "NewAIMapper"

	switch cfg.AIProvider {
	case "openai":
		return NewOpenAIMapper(cfg), nil
	case "gemini":
		return NewGeminiMapper(ctx, cfg)
	default:
		return nil, fmt.Errorf("%s: unknown AI provider: %s", op, cfg.AIProvider)
	}
}
