package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

// geminiExtractionPrompt is the fixed instruction sent with every
// document. It asks for a verbatim transcription, nothing else.
const geminiExtractionPrompt = `Extract ALL text content from this document exactly as it appears.
Preserve the reading order and line breaks. Do not summarize, translate,
correct spelling, or add any commentary. Return only the raw text.`

// geminiFixedConfidence is reported for every successful extraction;
// the model does not expose a per-token confidence signal.
const geminiFixedConfidence = 90

// GeminiConfig configures the Gemini extractor.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiExtractor implements TextExtractor using a multimodal model
// with the document sent as an inline payload.
type GeminiExtractor struct {
	client *genai.Client
	config GeminiConfig
	log    zerolog.Logger
}

// NewGeminiExtractor creates the extractor from explicit configuration.
func NewGeminiExtractor(ctx context.Context, config GeminiConfig) (*GeminiExtractor, error) {
	const op = "NewGeminiExtractor"

	if config.APIKey == "" {
		return nil, NewExtractionError("gemini", op, ErrMissingCredentials, "GEMINI_API_KEY is not set")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, WrapExtractionError("gemini", op, err, "failed to create Gemini client")
	}

	return &GeminiExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("gemini-ocr"),
	}, nil
}

// ProviderName returns the configuration key for this provider.
func (g *GeminiExtractor) ProviderName() string { return "gemini" }

// SupportsFileType reports whether the model accepts the MIME type.
func (g *GeminiExtractor) SupportsFileType(mimeType string) bool {
	return mimetype.Supports(g.ProviderName(), mimeType)
}

// ValidatePermissions confirms the API key is present and well-formed.
// The key is only fully verified on the first model call.
func (g *GeminiExtractor) ValidatePermissions(ctx context.Context) error {
	const op = "ValidatePermissions"

	if g.config.APIKey == "" {
		return NewExtractionError(g.ProviderName(), op, ErrMissingCredentials, "GEMINI_API_KEY is not set")
	}
	if g.client == nil {
		return NewExtractionError(g.ProviderName(), op, ErrInvalidConfiguration, "client not initialized")
	}
	return nil
}

// ExtractText sends the document inline with the fixed transcription
// instruction and reads the first candidate's first content part.
func (g *GeminiExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error) {
	const op = "ExtractText"
	startTime := time.Now()

	normalized := mimetype.Normalize(mimeType, "")
	if !g.SupportsFileType(normalized) {
		return nil, NewExtractionError(g.ProviderName(), op, ErrUnsupportedFormat, fmt.Sprintf("mime type: %s", mimeType))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.config.Model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(callCtx,
		genai.Text(geminiExtractionPrompt),
		genai.Blob{MIMEType: normalized, Data: data},
	)
	if err != nil {
		return nil, g.translateError(op, err)
	}

	if len(resp.Candidates) == 0 {
		return nil, NewExtractionError(g.ProviderName(), op, ErrMalformedResponse, "no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, NewExtractionError(g.ProviderName(), op, ErrMalformedResponse,
			fmt.Sprintf("candidate has no content parts (finish reason: %s)", candidate.FinishReason))
	}

	text, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, NewExtractionError(g.ProviderName(), op, ErrMalformedResponse,
			fmt.Sprintf("first content part is not text (finish reason: %s)", candidate.FinishReason))
	}
	if strings.TrimSpace(string(text)) == "" {
		return nil, NewExtractionError(g.ProviderName(), op, ErrEmptyDocument,
			fmt.Sprintf("model returned an empty answer (finish reason: %s)", candidate.FinishReason))
	}

	g.log.Debug().
		Int("text_length", len(text)).
		Str("model", g.config.Model).
		Msg("Gemini extraction completed")

	return &ExtractedText{
		Text:       string(text),
		Confidence: geminiFixedConfidence,
		Metadata: Metadata{
			Provider:       g.ProviderName(),
			ProcessingTime: time.Since(startTime),
			Extras: map[string]string{
				"model":         g.config.Model,
				"finish_reason": fmt.Sprintf("%s", candidate.FinishReason),
			},
		},
	}, nil
}

// translateError converts Gemini API errors into the closed error-kind
// vocabulary.
func (g *GeminiExtractor) translateError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "API key not valid"), strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewExtractionError(g.ProviderName(), op, ErrInvalidCredentials, errStr)
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED"), strings.Contains(errStr, "429"):
		return NewExtractionError(g.ProviderName(), op, ErrThrottled, errStr)
	case strings.Contains(errStr, "context deadline exceeded"):
		return NewExtractionError(g.ProviderName(), op, ErrTimeout, errStr)
	case strings.Contains(errStr, "UNAVAILABLE"), strings.Contains(errStr, "503"):
		return NewExtractionError(g.ProviderName(), op, ErrServiceUnavailable, errStr)
	default:
		return NewExtractionError(g.ProviderName(), op, ErrExtractionFailed, errStr)
	}
}

// Close closes the underlying client.
func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
