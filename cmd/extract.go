package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
	"docpipe/internal/ocr"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text from a document using the configured OCR provider",
	Long: `Extract all text content from a document image or PDF using the OCR
provider selected by OCR_PROVIDER (documentai, vision, gemini, or
tesseract).

Provider credentials are read from the environment:
  documentai - GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID and
               GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  vision     - GOOGLE_CLOUD_PROJECT and Google credentials as above
  gemini     - GEMINI_API_KEY
  tesseract  - none (local engine)`,
	Example: `  # Extract text from a marksheet scan to stdout
  docpipe extract marksheet.jpg

  # Save extracted text to a file
  docpipe extract certificate.pdf -o extracted.txt

  # Output as JSON with confidence and provider metadata
  docpipe extract marksheet.jpg --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON output structure for --json.
type ExtractOutput struct {
	Text               string  `json:"text"`
	Confidence         float64 `json:"confidence"`
	Provider           string  `json:"provider"`
	PageCount          int     `json:"page_count,omitempty"`
	ProcessingDuration string  `json:"processing_duration,omitempty"`
	FileName           string  `json:"file_name"`
	FileSize           int64   `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	filePath := args[0]
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	mimeType := mimetype.DetectFromURL(filePath)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancelTimeout()

	extractor, err := ocr.NewTextExtractor(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create OCR service: %w", err)
	}

	if !extractor.SupportsFileType(mimeType) {
		return fmt.Errorf("provider %s does not support file type %s", extractor.ProviderName(), mimeType)
	}

	log.Info().
		Str("file", filePath).
		Str("mime_type", mimeType).
		Str("provider", extractor.ProviderName()).
		Int64("size", info.Size()).
		Msg("Starting text extraction")

	start := time.Now()
	result, err := extractor.ExtractText(ctx, data, mimeType)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	log.Info().
		Int("text_length", len(result.Text)).
		Float64("confidence", result.Confidence).
		Dur("duration", time.Since(start)).
		Msg("Text extraction completed")

	var output string
	if jsonOutput {
		encoded, err := json.MarshalIndent(ExtractOutput{
			Text:               result.Text,
			Confidence:         result.Confidence,
			Provider:           result.Metadata.Provider,
			PageCount:          result.Metadata.PageCount,
			ProcessingDuration: result.Metadata.ProcessingTime.String(),
			FileName:           filepath.Base(filePath),
			FileSize:           info.Size(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		output = string(encoded)
	} else {
		output = result.Text
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(output), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Extracted text written to %s\n", outputPath)
		return nil
	}

	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	fmt.Print(output)
	return nil
}
