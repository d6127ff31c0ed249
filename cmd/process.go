package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/mapping"
	"docpipe/internal/mimetype"
	"docpipe/internal/pipeline"
	"docpipe/internal/qr"
	"docpipe/internal/schema"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Run the full document pipeline: QR, OCR, and schema mapping",
	Long: `Run the complete document-understanding pipeline for one upload:
QR detection and payload processing, conditional redirect to a
QR-referenced remote document, OCR text extraction, and AI-first
schema mapping with deterministic keyword fallback.

The target field schema is a JSON object mapping field names to
specifications, for example:

  {
    "name":       {"type": "string", "required": true},
    "rollNumber": {"type": "string"},
    "percentage": {"type": "number"}
  }`,
	Example: `  # Map a marksheet scan onto a schema
  docpipe process marksheet.jpg --schema marksheet-schema.json

  # Document sub-type whose QR code declares a referenced document
  docpipe process certificate.png --schema cert-schema.json \
    --doc-sub-type degree-certificate --qr-content-type DOC_URL`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("schema", "", "Path to the field schema JSON file (required)")
	processCmd.Flags().String("synonyms", "", "Path to a JSON file of field-name to label-synonym overrides for the keyword fallback")
	processCmd.Flags().String("doc-type", "certificate", "Document type (logging context)")
	processCmd.Flags().String("doc-sub-type", "", "Document sub-type key")
	processCmd.Flags().String("qr-content-type", "", "Declared QR content type for this sub-type; empty disables QR processing")
	processCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	processCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	_ = processCmd.MarkFlagRequired("schema")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	schemaPath, _ := cmd.Flags().GetString("schema")
	synonymsPath, _ := cmd.Flags().GetString("synonyms")
	docType, _ := cmd.Flags().GetString("doc-type")
	docSubType, _ := cmd.Flags().GetString("doc-sub-type")
	qrContentTypeFlag, _ := cmd.Flags().GetString("qr-content-type")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	filePath := args[0]
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	mimeType := mimetype.DetectFromURL(filePath)

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", schemaPath, err)
	}
	fields := schema.New()
	if err := json.Unmarshal(schemaData, fields); err != nil {
		return fmt.Errorf("invalid schema file %s: %w", schemaPath, err)
	}

	var synonyms mapping.SynonymTable
	if synonymsPath != "" {
		synData, err := os.ReadFile(synonymsPath)
		if err != nil {
			return fmt.Errorf("failed to read synonyms file %s: %w", synonymsPath, err)
		}
		var overrides map[string][]string
		if err := json.Unmarshal(synData, &overrides); err != nil {
			return fmt.Errorf("invalid synonyms file %s: %w", synonymsPath, err)
		}
		synonyms = mapping.DefaultSynonyms().MergedWith(overrides)
	}

	var lookup qr.ConfigLookup
	if qrContentTypeFlag != "" {
		contentType, err := qr.ParseContentType(qrContentTypeFlag)
		if err != nil {
			return err
		}
		lookup = func(string) (qr.TypeConfig, bool) {
			return qr.TypeConfig{ContentType: contentType}, true
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancelTimeout()

	p, err := pipeline.New(ctx, cfg, lookup, synonyms)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	log.Info().
		Str("file", filePath).
		Str("mime_type", mimeType).
		Str("doc_sub_type", docSubType).
		Int("schema_fields", fields.Len()).
		Msg("Starting document processing")

	result, err := p.Process(ctx, data, mimeType, docType, docSubType, fields)
	if err != nil {
		// A required-QR failure still carries the structured result;
		// show the user-facing message rather than a bare error chain.
		if errors.Is(err, pipeline.ErrQRRequired) && result != nil && result.QR != nil {
			fmt.Fprintln(os.Stderr, result.QR.Error)
		}
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Processing result written to %s\n", outputPath)
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}
