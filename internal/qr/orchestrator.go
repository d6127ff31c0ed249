package qr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

// TypeConfig is the externally supplied per-document-sub-type QR
// configuration: which content type the sub-type's QR codes declare.
type TypeConfig struct {
	ContentType ContentType `json:"content_type"`
}

// ConfigLookup resolves the QR configuration for a document sub-type.
// A false return means the sub-type has no QR processing configured.
type ConfigLookup func(docSubType string) (TypeConfig, bool)

// Orchestrator decides per document sub-type whether QR processing
// applies at all and owns the required-vs-optional failure policy.
type Orchestrator struct {
	detector  *Detector
	processor *Processor
	lookup    ConfigLookup
	log       zerolog.Logger
}

// NewOrchestrator wires the detector, the issuer-specific processor,
// and the external per-type configuration.
func NewOrchestrator(detector *Detector, processor *Processor, lookup ConfigLookup) *Orchestrator {
	return &Orchestrator{
		detector:  detector,
		processor: processor,
		lookup:    lookup,
		log:       logger.WithComponent("qr-orchestrator"),
	}
}

// Process runs QR handling for one document upload. A nil result means
// QR processing does not apply (unconfigured sub-type or a file type
// the detector cannot scan) and the pipeline should proceed with plain
// OCR. Any non-nil result carries the required-failure contract in
// IsRequired. Unexpected failures never escape: they are downgraded to
// a PROCESSING_ERROR result.
func (o *Orchestrator) Process(ctx context.Context, data []byte, mimeType, docSubType string) (result *ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Interface("panic", r).
				Str("doc_sub_type", docSubType).
				Msg("QR processing panicked")
			result = errorResult("", "", ErrorTypeProcessingError,
				"The document could not be processed. Please try again.",
				fmt.Sprintf("panic: %v", r))
		}
	}()

	if o.lookup == nil {
		return nil
	}
	cfg, ok := o.lookup(docSubType)
	if !ok || cfg.ContentType == "" {
		o.log.Debug().Str("doc_sub_type", docSubType).Msg("No QR configuration for document sub-type")
		return nil
	}

	if !mimetype.Supports("qr", mimeType) {
		o.log.Info().
			Str("doc_sub_type", docSubType).
			Str("mime_type", mimeType).
			Msg("File type unsupported for QR detection, skipping")
		return nil
	}

	content, err := o.detector.Detect(data, mimeType)
	if err != nil {
		// Detect only errors on unsupported input, which the capability
		// check above already excluded.
		o.log.Warn().Err(err).Msg("QR detection rejected input")
		return nil
	}
	if content == "" {
		return errorResult("", "", ErrorTypeQRNotFound,
			"Please upload a document containing a valid QR code.",
			"no QR code decoded by any strategy")
	}

	return o.processor.Process(ctx, cfg.ContentType, content)
}
