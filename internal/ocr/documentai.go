package ocr

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

const (
	// MaxDocumentSizeBytes is the maximum document size for synchronous
	// Document AI processing (20MB).
	MaxDocumentSizeBytes = 20 * 1024 * 1024

	documentAITimeout = 60 * time.Second
)

// DocumentAIConfig configures the Document AI extractor.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	CredentialsJSON  string
	CredentialsFile  string
	Timeout          time.Duration
}

// DocumentAIExtractor implements TextExtractor using Google Document AI
// document text detection.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates the extractor from explicit configuration.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" {
		return nil, NewExtractionError("documentai", op, ErrInvalidConfiguration, "project ID is required")
	}
	if config.ProcessorID == "" {
		return nil, NewExtractionError("documentai", op, ErrInvalidConfiguration, "processor ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = documentAITimeout
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if config.CredentialsJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	} else if config.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, NewExtractionError("documentai", op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError("documentai", op, err, fmt.Sprintf("failed to create client for location: %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("documentai-ocr"),
	}, nil
}

// NewDocumentAIExtractorWithClient creates the extractor with an explicit client (for testing).
func NewDocumentAIExtractorWithClient(client *documentai.DocumentProcessorClient, config DocumentAIConfig) *DocumentAIExtractor {
	if config.Timeout <= 0 {
		config.Timeout = documentAITimeout
	}
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("documentai-ocr"),
	}
}

// ProviderName returns the configuration key for this provider.
func (d *DocumentAIExtractor) ProviderName() string { return "documentai" }

// SupportsFileType reports whether Document AI accepts the MIME type.
func (d *DocumentAIExtractor) SupportsFileType(mimeType string) bool {
	return mimetype.Supports(d.ProviderName(), mimeType)
}

// ValidatePermissions checks that the processor is reachable with the
// configured credentials by fetching its metadata.
func (d *DocumentAIExtractor) ValidatePermissions(ctx context.Context) error {
	const op = "ValidatePermissions"

	_, err := d.client.GetProcessor(ctx, &documentaipb.GetProcessorRequest{
		Name: d.processorName(),
	})
	if err != nil {
		return d.translateError(op, err)
	}
	return nil
}

// ExtractText runs document text detection and joins recognized lines.
func (d *DocumentAIExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error) {
	const op = "ExtractText"
	startTime := time.Now()

	normalized := mimetype.Normalize(mimeType, "")
	if !d.SupportsFileType(normalized) {
		return nil, NewExtractionError(d.ProviderName(), op, ErrUnsupportedFormat, fmt.Sprintf("mime type: %s", mimeType))
	}
	if len(data) > MaxDocumentSizeBytes {
		return nil, NewExtractionError(d.ProviderName(), op, ErrExtractionFailed, fmt.Sprintf("document exceeds size limit: %d bytes", len(data)))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: normalized,
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.translateError(op, err)
	}
	doc := resp.GetDocument()
	if doc == nil {
		return nil, NewExtractionError(d.ProviderName(), op, ErrMalformedResponse, "no document in response")
	}

	text, confidence, lineCount := d.collectLines(doc)
	if strings.TrimSpace(text) == "" {
		return nil, NewExtractionError(d.ProviderName(), op, ErrEmptyDocument, "no text blocks detected")
	}

	d.log.Debug().
		Int("lines", lineCount).
		Int("pages", len(doc.GetPages())).
		Float64("confidence", confidence).
		Msg("Document AI extraction completed")

	return &ExtractedText{
		Text:       text,
		Confidence: confidence,
		Metadata: Metadata{
			Provider:       d.ProviderName(),
			ProcessingTime: time.Since(startTime),
			PageCount:      len(doc.GetPages()),
			Extras: map[string]string{
				"processor": d.config.ProcessorID,
				"lines":     fmt.Sprintf("%d", lineCount),
			},
		},
	}, nil
}

// collectLines joins per-line text blocks with newlines and averages
// their layout confidence. Confidence is 0 when no lines were detected.
func (d *DocumentAIExtractor) collectLines(doc *documentaipb.Document) (string, float64, int) {
	var lines []string
	var confidenceSum float64

	for _, page := range doc.GetPages() {
		for _, line := range page.GetLines() {
			layout := line.GetLayout()
			text := strings.TrimRight(layoutText(doc, layout), "\n")
			if text == "" {
				continue
			}
			lines = append(lines, text)
			confidenceSum += float64(layout.GetConfidence())
		}
	}

	if len(lines) == 0 {
		// Fall back to the raw document text when the processor did not
		// produce line-level layout.
		if raw := doc.GetText(); strings.TrimSpace(raw) != "" {
			return raw, 0, 0
		}
		return "", 0, 0
	}

	confidence := math.Round(confidenceSum/float64(len(lines))*100*100) / 100
	return strings.Join(lines, "\n"), confidence, len(lines)
}

// layoutText resolves a layout's text anchor segments against the
// document's full text.
func layoutText(doc *documentaipb.Document, layout *documentaipb.Document_Page_Layout) string {
	anchor := layout.GetTextAnchor()
	if anchor == nil {
		return ""
	}
	full := doc.GetText()
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start := int(seg.GetStartIndex())
		end := int(seg.GetEndIndex())
		if start < 0 || end > len(full) || start >= end {
			continue
		}
		sb.WriteString(full[start:end])
	}
	return sb.String()
}

// processorName constructs the full processor resource name.
func (d *DocumentAIExtractor) processorName() string {
	if d.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID, d.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// translateError converts Document AI errors into the closed error-kind
// vocabulary.
func (d *DocumentAIExtractor) translateError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "Unauthenticated"):
		return NewExtractionError(d.ProviderName(), op, ErrInvalidCredentials, errStr)
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED"), strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return NewExtractionError(d.ProviderName(), op, ErrThrottled, errStr)
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewExtractionError(d.ProviderName(), op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewExtractionError(d.ProviderName(), op, ErrUnsupportedFormat, errStr)
	case strings.Contains(errStr, "DeadlineExceeded"), strings.Contains(errStr, "context deadline exceeded"):
		return NewExtractionError(d.ProviderName(), op, ErrTimeout, errStr)
	case strings.Contains(errStr, "UNAVAILABLE"):
		return NewExtractionError(d.ProviderName(), op, ErrServiceUnavailable, errStr)
	default:
		return NewExtractionError(d.ProviderName(), op, ErrExtractionFailed, errStr)
	}
}

// Close closes the underlying client.
func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
