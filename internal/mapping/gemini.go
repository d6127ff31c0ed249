package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/schema"
)

// GeminiMapper implements AIMapper over a hosted multimodal model used
// in text-only mode.
type GeminiMapper struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiMapper creates the mapper from configuration. A missing API
// key leaves the mapper unconfigured; client construction itself does
// not touch the network.
func NewGeminiMapper(ctx context.Context, cfg *config.Config) (*GeminiMapper, error) {
	const op = "NewGeminiMapper"

	m := &GeminiMapper{
		model: cfg.GeminiModel,
		log:   logger.WithComponent("ai-mapping-gemini"),
	}
	if cfg.GeminiAPIKey == "" {
		return m, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create Gemini client: %w", op, err)
	}
	m.client = client
	return m, nil
}

// NewGeminiMapperWithClient creates the mapper with an explicit client
// (for testing).
func NewGeminiMapperWithClient(client *genai.Client, model string) *GeminiMapper {
	return &GeminiMapper{
		client: client,
		model:  model,
		log:    logger.WithComponent("ai-mapping-gemini"),
	}
}

// IsConfigured reports whether an API key was provided.
func (m *GeminiMapper) IsConfigured() bool {
	return m.client != nil && m.model != ""
}

// ProviderName returns the configuration key for this backend.
func (m *GeminiMapper) ProviderName() string { return "gemini" }

// MapTextToSchema sends one mapping prompt and parses the first
// candidate's text parts.
func (m *GeminiMapper) MapTextToSchema(ctx context.Context, text string, fields *schema.FieldSchema) (map[string]any, error) {
	const op = "GeminiMapper.MapTextToSchema"

	if !m.IsConfigured() {
		return nil, fmt.Errorf("%s: GEMINI_API_KEY is not set", op)
	}

	prompt, err := buildMappingPrompt(text, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	model := m.client.GenerativeModel(m.model)
	model.SetTemperature(0)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(mappingSystemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Candidates) == 0 {
		m.log.Warn().Str("model", m.model).Msg("No candidates in mapping response")
		return nil, nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		m.log.Warn().
			Str("model", m.model).
			Str("finish_reason", fmt.Sprintf("%s", candidate.FinishReason)).
			Msg("Mapping candidate has no content parts")
		return nil, nil
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	result := ParseModelResponse(b.String())
	if result == nil {
		m.log.Warn().
			Str("model", m.model).
			Int("response_length", b.Len()).
			Msg("Mapping response contained no usable JSON object")
		return nil, nil
	}

	m.log.Debug().
		Str("model", m.model).
		Int("field_count", len(result)).
		Msg("AI mapping completed")
	return result, nil
}

// Close closes the underlying client.
func (m *GeminiMapper) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
