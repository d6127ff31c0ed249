package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docpipe/internal/config"
	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
	"docpipe/internal/qr"
)

var qrCmd = &cobra.Command{
	Use:   "qr [image]",
	Short: "Detect and process a QR code embedded in a document image",
	Long: `Detect a QR code in a document image, trying multiple image
preprocessing strategies, and optionally process its payload as a
declared content type (download referenced documents, parse embedded
JSON or XML, fetch credentials).

Without --content-type only the raw decoded payload is printed.
Issuer-specific payload handling (QR_ISSUER) currently supports
digilocker and dhiway.`,
	Example: `  # Print the raw QR payload
  docpipe qr marksheet.jpg

  # Process the payload as a JSON_URL and download the referenced document
  docpipe qr marksheet.jpg --content-type JSON_URL

  # Digilocker-style delimited text+URL payload
  QR_ISSUER=digilocker docpipe qr aadhaar-card.png --content-type TEXT_AND_URL`,
	Args: cobra.ExactArgs(1),
	RunE: runQR,
}

func init() {
	rootCmd.AddCommand(qrCmd)

	qrCmd.Flags().StringP("content-type", "t", "", "Declared QR content type (PLAIN_TEXT, JSON, JSON_URL, XML, XML_URL, TEXT_AND_URL, VC_URL, DOC_URL)")
	qrCmd.Flags().StringP("save-document", "s", "", "Path to save a downloaded referenced document")
	qrCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runQR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("qr")

	contentTypeFlag, _ := cmd.Flags().GetString("content-type")
	savePath, _ := cmd.Flags().GetString("save-document")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	filePath := args[0]
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	mimeType := mimetype.DetectFromURL(filePath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancelTimeout()

	detector := qr.NewDetector()
	content, err := detector.Detect(data, mimeType)
	if err != nil {
		return err
	}
	if content == "" {
		return fmt.Errorf("no QR code found in %s", filePath)
	}

	log.Info().Int("payload_length", len(content)).Msg("QR code decoded")

	if contentTypeFlag == "" {
		fmt.Println(content)
		return nil
	}

	contentType, err := qr.ParseContentType(contentTypeFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	processor, err := qr.NewProcessor(cfg.QRIssuer, qr.NewDownloader())
	if err != nil {
		return err
	}

	result := processor.Process(ctx, contentType, content)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(encoded))

	if savePath != "" && result.DownloadedDocument != nil {
		if err := os.WriteFile(savePath, result.DownloadedDocument.Data, 0o644); err != nil {
			return fmt.Errorf("failed to save downloaded document: %w", err)
		}
		fmt.Printf("Downloaded document written to %s\n", savePath)
	}

	if result.Failed() {
		return fmt.Errorf("QR processing failed (%s): %s", result.ErrorType, result.Error)
	}
	return nil
}
