package ocr

import (
	"context"
	"fmt"

	"docpipe/internal/config"
)

// NewTextExtractor builds the OCR provider named by cfg.OCRProvider.
// All credentials come from the loaded configuration; adapters never
// read the environment themselves.
func NewTextExtractor(ctx context.Context, cfg *config.Config) (TextExtractor, error) {
	switch cfg.OCRProvider {
	case "documentai":
		return NewDocumentAIExtractor(ctx, DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
			CredentialsJSON:  cfg.GoogleCredentialsJSON,
			CredentialsFile:  cfg.GoogleCredentialsFile,
		})
	case "vision":
		return NewVisionExtractor(ctx, VisionConfig{
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
	case "gemini":
		return NewGeminiExtractor(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	case "tesseract":
		return NewTesseractExtractor(), nil
	default:
		return nil, fmt.Errorf("ocr: unknown provider: %s", cfg.OCRProvider)
	}
}
