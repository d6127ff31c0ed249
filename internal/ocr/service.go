// Package ocr provides text extraction from scanned documents through
// interchangeable provider backends.
//
// Four providers are supported, selected by configuration:
//   - documentai: Google Document AI document text detection
//   - vision:     Google Cloud Vision document text detection
//   - gemini:     multimodal model extraction (inline image/PDF payload)
//   - tesseract:  local OCR engine (English), no network
//
// Providers translate their own failure modes into the sentinel errors
// declared in errors.go; callers never see provider exception types.
package ocr

import (
	"context"
	"time"
)

// TextExtractor is the uniform contract over OCR backends.
type TextExtractor interface {
	// ExtractText runs OCR over the raw document bytes and returns the
	// recognized text with a confidence score and provider metadata.
	ExtractText(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error)

	// SupportsFileType reports whether this provider accepts the MIME type.
	SupportsFileType(mimeType string) bool

	// ProviderName returns the configuration key for this provider.
	ProviderName() string

	// ValidatePermissions verifies credentials/configuration for this
	// provider. It returns a typed configuration error on failure and
	// never degrades silently.
	ValidatePermissions(ctx context.Context) error
}

// ExtractedText is the result of one extraction.
type ExtractedText struct {
	// Text is the full recognized text in reading order.
	Text string `json:"text"`

	// Confidence is the provider's confidence in the extraction, 0-100.
	Confidence float64 `json:"confidence"`

	// Metadata carries provider diagnostics.
	Metadata Metadata `json:"metadata"`
}

// Metadata describes how an extraction was produced.
type Metadata struct {
	Provider       string            `json:"provider"`
	ProcessingTime time.Duration     `json:"processing_time"`
	PageCount      int               `json:"page_count,omitempty"`
	Extras         map[string]string `json:"extras,omitempty"`
}
