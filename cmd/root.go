package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docpipe/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "docpipe",
	Short: "docpipe - document understanding pipeline for credential issuance",
	Long: `docpipe ingests scanned or photographed documents (ID cards,
certificates, marksheets) and produces structured, schema-conformant
data for downstream credential issuance.

The pipeline detects and decodes embedded QR codes, conditionally
redirects processing to QR-referenced remote documents, extracts raw
text via a configurable OCR provider, and maps the text onto a target
field schema using AI-based extraction with a deterministic keyword
fallback.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("docpipe executed")

		fmt.Println("docpipe - document understanding pipeline")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
