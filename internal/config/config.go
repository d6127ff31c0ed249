package config

import (
	"fmt"
	"os"
	"strings"

	"docpipe/internal/logger"
)

// Config holds all process-level configuration. It is loaded once at
// startup and handed to adapter constructors so they never read the
// environment themselves.
type Config struct {
	// OCR provider selection: documentai, vision, gemini, tesseract
	OCRProvider string

	// AI mapping provider selection: openai, gemini
	AIProvider string

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Gemini Configuration
	GeminiAPIKey string
	GeminiModel  string

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	GoogleCredentialsJSON      string
	GoogleCredentialsFile      string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// QR Configuration
	QRIssuer string // issuer-specific QR content handling (e.g. digilocker, dhiway); empty for default

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OCRProvider:                strings.ToLower(getEnv("OCR_PROVIDER", "documentai")),
		AIProvider:                 strings.ToLower(getEnv("AI_PROVIDER", "openai")),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:               getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		GoogleCredentialsJSON:      getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile:      getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		QRIssuer:                   strings.ToLower(getEnv("QR_ISSUER", "")),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.OCRProvider {
	case "documentai":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai OCR provider")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai OCR provider")
		}
	case "vision":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the vision OCR provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini OCR provider")
		}
	case "tesseract":
		// local engine, no credentials
	default:
		return fmt.Errorf("unknown OCR_PROVIDER: %s", c.OCRProvider)
	}

	switch c.AIProvider {
	case "openai", "gemini":
		// keys are checked via IsConfigured so keyword fallback still works
	default:
		return fmt.Errorf("unknown AI_PROVIDER: %s", c.AIProvider)
	}

	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
