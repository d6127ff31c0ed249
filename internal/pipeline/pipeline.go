// Package pipeline runs the full document-understanding flow for one
// upload: QR detection, conditional redirect to a QR-referenced remote
// document, OCR text extraction, and schema mapping.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/mapping"
	"docpipe/internal/ocr"
	"docpipe/internal/qr"
	"docpipe/internal/schema"
)

// ErrQRRequired signals that QR processing was mandatory for the
// document sub-type and failed. Result.QR carries the user-facing
// message and error type.
var ErrQRRequired = errors.New("required QR processing failed")

// qrTextConfidence is reported when the pipeline short-circuits with
// QR payload content instead of running OCR: a decoded QR payload is
// exact, not probabilistic.
const qrTextConfidence = 100

// Result bundles the outputs of one pipeline run. QR is nil when no QR
// processing applied to the document sub-type.
type Result struct {
	QR      *qr.ProcessingResult   `json:"qr,omitempty"`
	Text    *ocr.ExtractedText     `json:"text,omitempty"`
	Mapping *mapping.MappingResult `json:"mapping,omitempty"`
}

// Pipeline composes the QR orchestrator, a text extractor, and the
// mapping coordinator. Safe for concurrent use; all state is in the
// provider clients, which are shared across requests.
type Pipeline struct {
	extractor    ocr.TextExtractor
	orchestrator *qr.Orchestrator
	coordinator  *mapping.Coordinator
	log          zerolog.Logger
}

// New wires a pipeline from configuration. lookup supplies the
// per-document-sub-type QR configuration; nil disables QR processing.
// synonyms overrides the keyword engine's label table; nil keeps the
// built-in one.
func New(ctx context.Context, cfg *config.Config, lookup qr.ConfigLookup, synonyms mapping.SynonymTable) (*Pipeline, error) {
	const op = "pipeline.New"

	extractor, err := ocr.NewTextExtractor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	processor, err := qr.NewProcessor(cfg.QRIssuer, qr.NewDownloader())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	aiMapper, err := mapping.NewAIMapper(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	coordinator := mapping.NewCoordinator(aiMapper)
	if synonyms != nil {
		coordinator = mapping.NewCoordinatorWithDeps(aiMapper, mapping.NewKeywordEngineWithSynonyms(synonyms))
	}

	return NewWithDeps(extractor,
		qr.NewOrchestrator(qr.NewDetector(), processor, lookup),
		coordinator), nil
}

// NewWithDeps creates a pipeline with explicit stages (for testing).
func NewWithDeps(extractor ocr.TextExtractor, orchestrator *qr.Orchestrator, coordinator *mapping.Coordinator) *Pipeline {
	return &Pipeline{
		extractor:    extractor,
		orchestrator: orchestrator,
		coordinator:  coordinator,
		log:          logger.WithComponent("pipeline"),
	}
}

// Process runs the pipeline for one document upload.
//
// The QR stage decides the OCR input: a downloaded OCR-able document
// replaces the upload, a non-OCR-able QR payload (plain text, parsed
// JSON credential) short-circuits extraction entirely, and an absent or
// optional QR falls through to plain OCR of the original bytes. A
// failed required QR returns ErrQRRequired with the structured result
// still populated so callers can surface the actionable message.
func (p *Pipeline) Process(ctx context.Context, data []byte, mimeType, docType, docSubType string, fields *schema.FieldSchema) (*Result, error) {
	log := logger.WithDocumentType(docType, docSubType)
	result := &Result{}

	qrResult := p.orchestrator.Process(ctx, data, mimeType, docSubType)
	result.QR = qrResult

	switch {
	case qrResult == nil:
		// No QR processing for this sub-type; plain OCR.

	case qrResult.Failed():
		if qrResult.IsRequired {
			log.Warn().
				Str("error_type", string(qrResult.ErrorType)).
				Msg("Required QR processing failed")
			return result, fmt.Errorf("%w: %s", ErrQRRequired, qrResult.Error)
		}
		log.Info().
			Str("error_type", string(qrResult.ErrorType)).
			Msg("Optional QR processing failed, falling through to OCR")

	case qrResult.DownloadedDocument != nil:
		doc := qrResult.DownloadedDocument
		if p.extractor.SupportsFileType(doc.MimeType) {
			log.Info().
				Str("url", doc.URL).
				Str("mime_type", doc.MimeType).
				Msg("Re-extracting from QR-referenced document")
			data, mimeType = doc.Data, doc.MimeType
		} else {
			// A JSON(-LD) credential or similar textual payload: its
			// body is already the text to map.
			result.Text = payloadText(string(doc.Data))
		}

	default:
		result.Text = payloadText(qrPayloadText(qrResult))
	}

	if result.Text == nil {
		extracted, err := p.extractor.ExtractText(ctx, data, mimeType)
		if err != nil {
			return result, fmt.Errorf("text extraction: %w", err)
		}
		result.Text = extracted
	}

	result.Mapping = p.coordinator.MapAfterOCR(ctx, result.Text.Text, docType, docSubType, fields)
	return result, nil
}

// qrPayloadText renders a successful QR result as mappable text:
// processed text when the handler produced it, otherwise the processed
// data as JSON, otherwise the raw payload.
func qrPayloadText(r *qr.ProcessingResult) string {
	if text, ok := r.ProcessedData["text"].(string); ok && text != "" {
		return text
	}
	if len(r.ProcessedData) > 0 {
		if encoded, err := json.Marshal(r.ProcessedData); err == nil {
			return string(encoded)
		}
	}
	return r.QRCodeContent
}

func payloadText(text string) *ocr.ExtractedText {
	return &ocr.ExtractedText{
		Text:       text,
		Confidence: qrTextConfidence,
		Metadata: ocr.Metadata{
			Provider: "qr-payload",
		},
	}
}
