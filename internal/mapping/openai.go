package mapping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/schema"
)

// OpenAIMapper implements AIMapper over the chat completion API.
type OpenAIMapper struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIMapper creates the mapper from configuration. A missing API
// key leaves the mapper unconfigured rather than failing construction,
// so the keyword fallback still works.
func NewOpenAIMapper(cfg *config.Config) *OpenAIMapper {
	m := &OpenAIMapper{
		model: cfg.OpenAIModel,
		log:   logger.WithComponent("ai-mapping-openai"),
	}
	if cfg.OpenAIAPIKey != "" {
		m.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return m
}

// NewOpenAIMapperWithClient creates the mapper with an explicit client
// (for testing).
func NewOpenAIMapperWithClient(client *openai.Client, model string) *OpenAIMapper {
	return &OpenAIMapper{
		client: client,
		model:  model,
		log:    logger.WithComponent("ai-mapping-openai"),
	}
}

// IsConfigured reports whether an API key was provided.
func (m *OpenAIMapper) IsConfigured() bool {
	return m.client != nil && m.model != ""
}

// ProviderName returns the configuration key for this backend.
func (m *OpenAIMapper) ProviderName() string { return "openai" }

// MapTextToSchema sends one mapping prompt and parses the reply.
func (m *OpenAIMapper) MapTextToSchema(ctx context.Context, text string, fields *schema.FieldSchema) (map[string]any, error) {
	const op = "OpenAIMapper.MapTextToSchema"

	if !m.IsConfigured() {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY is not set", op)
	}

	prompt, err := buildMappingPrompt(text, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: mappingSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		m.log.Warn().Str("model", m.model).Msg("No choices in mapping response")
		return nil, nil
	}

	content := resp.Choices[0].Message.Content
	result := ParseModelResponse(content)
	if result == nil {
		m.log.Warn().
			Str("model", m.model).
			Int("response_length", len(content)).
			Msg("Mapping response contained no usable JSON object")
		return nil, nil
	}

	m.log.Debug().
		Str("model", m.model).
		Int("field_count", len(result)).
		Msg("AI mapping completed")
	return result, nil
}
