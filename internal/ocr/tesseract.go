package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

// tesseractFixedConfidence is reported for every successful local
// extraction; the engine's word-level scores are not aggregated.
const tesseractFixedConfidence = 90

// TesseractExtractor implements TextExtractor using a local OCR engine.
// One worker client is initialized lazily and reused; the engine is not
// safe for concurrent recognition, so calls are serialized.
type TesseractExtractor struct {
	mu     sync.Mutex
	client *gosseract.Client
	log    zerolog.Logger
}

// NewTesseractExtractor creates the extractor. The worker is not
// started until the first extraction.
func NewTesseractExtractor() *TesseractExtractor {
	return &TesseractExtractor{
		log: logger.WithComponent("tesseract-ocr"),
	}
}

// ProviderName returns the configuration key for this provider.
func (t *TesseractExtractor) ProviderName() string { return "tesseract" }

// SupportsFileType reports whether the local engine accepts the MIME type.
func (t *TesseractExtractor) SupportsFileType(mimeType string) bool {
	return mimetype.Supports(t.ProviderName(), mimeType)
}

// ValidatePermissions verifies the engine can be initialized. There are
// no credentials; failure means the native library is unavailable.
func (t *TesseractExtractor) ValidatePermissions(_ context.Context) error {
	const op = "ValidatePermissions"

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureClientLocked(); err != nil {
		return NewExtractionError(t.ProviderName(), op, ErrInvalidConfiguration, err.Error())
	}
	return nil
}

// ExtractText recognizes the image bytes with the shared worker.
func (t *TesseractExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error) {
	const op = "ExtractText"
	startTime := time.Now()

	normalized := mimetype.Normalize(mimeType, "")
	if !t.SupportsFileType(normalized) {
		return nil, NewExtractionError(t.ProviderName(), op, ErrUnsupportedFormat, fmt.Sprintf("mime type: %s", mimeType))
	}
	if err := ctx.Err(); err != nil {
		return nil, NewExtractionError(t.ProviderName(), op, ErrTimeout, err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureClientLocked(); err != nil {
		return nil, NewExtractionError(t.ProviderName(), op, ErrInvalidConfiguration, err.Error())
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, NewExtractionError(t.ProviderName(), op, ErrUnsupportedFormat, err.Error())
	}
	text, err := t.client.Text()
	if err != nil {
		return nil, NewExtractionError(t.ProviderName(), op, ErrExtractionFailed, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewExtractionError(t.ProviderName(), op, ErrEmptyDocument, "engine recognized no text")
	}

	t.log.Debug().
		Int("text_length", len(text)).
		Msg("Local OCR extraction completed")

	return &ExtractedText{
		Text:       text,
		Confidence: tesseractFixedConfidence,
		Metadata: Metadata{
			Provider:       t.ProviderName(),
			ProcessingTime: time.Since(startTime),
			Extras:         map[string]string{"language": "eng"},
		},
	}, nil
}

// ensureClientLocked lazily creates the shared worker. Caller holds mu.
func (t *TesseractExtractor) ensureClientLocked() error {
	if t.client != nil {
		return nil
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		_ = client.Close()
		return err
	}
	t.client = client
	return nil
}

// Close releases the worker.
func (t *TesseractExtractor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}
