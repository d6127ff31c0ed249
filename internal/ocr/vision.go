package ocr

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

// VisionConfig configures the Cloud Vision extractor.
type VisionConfig struct {
	CredentialsJSON string
	CredentialsFile string
	Timeout         time.Duration
}

// VisionExtractor implements TextExtractor using Google Cloud Vision
// document text detection. Images go through BatchAnnotateImages; PDFs
// go through the inline-file annotation path.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
	config VisionConfig
	log    zerolog.Logger
}

// NewVisionExtractor creates the extractor from explicit configuration.
func NewVisionExtractor(ctx context.Context, config VisionConfig) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption
	if config.CredentialsJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	} else if config.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, NewExtractionError("vision", op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError("vision", op, err, "failed to create Vision client")
	}

	return &VisionExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("vision-ocr"),
	}, nil
}

// NewVisionExtractorWithClient creates the extractor with an explicit client (for testing).
func NewVisionExtractorWithClient(client *vision.ImageAnnotatorClient, config VisionConfig) *VisionExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &VisionExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("vision-ocr"),
	}
}

// ProviderName returns the configuration key for this provider.
func (v *VisionExtractor) ProviderName() string { return "vision" }

// SupportsFileType reports whether Cloud Vision accepts the MIME type.
func (v *VisionExtractor) SupportsFileType(mimeType string) bool {
	return mimetype.Supports(v.ProviderName(), mimeType)
}

// ValidatePermissions verifies the client's credentials are usable by
// issuing a minimal annotation request.
func (v *VisionExtractor) ValidatePermissions(ctx context.Context) error {
	const op = "ValidatePermissions"

	// An empty batch authenticates without quota-relevant work. The API
	// rejects it with INVALID_ARGUMENT once past auth, which is success
	// for this check.
	_, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{},
	})
	if err != nil && !strings.Contains(err.Error(), "INVALID_ARGUMENT") {
		return v.translateError(op, err)
	}
	return nil
}

// ExtractText runs document text detection over image or PDF bytes.
func (v *VisionExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error) {
	const op = "ExtractText"
	startTime := time.Now()

	normalized := mimetype.Normalize(mimeType, "")
	if !v.SupportsFileType(normalized) {
		return nil, NewExtractionError(v.ProviderName(), op, ErrUnsupportedFormat, fmt.Sprintf("mime type: %s", mimeType))
	}
	if len(data) > MaxDocumentSizeBytes {
		return nil, NewExtractionError(v.ProviderName(), op, ErrExtractionFailed, fmt.Sprintf("document exceeds size limit: %d bytes", len(data)))
	}

	callCtx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	var (
		result *ExtractedText
		err    error
	)
	if normalized == mimetype.PDF {
		result, err = v.extractFromFile(callCtx, data, normalized)
	} else {
		result, err = v.extractFromImage(callCtx, data)
	}
	if err != nil {
		return nil, err
	}

	result.Metadata.Provider = v.ProviderName()
	result.Metadata.ProcessingTime = time.Since(startTime)
	return result, nil
}

// extractFromImage annotates one raster image.
func (v *VisionExtractor) extractFromImage(ctx context.Context, data []byte) (*ExtractedText, error) {
	const op = "extractFromImage"

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	})
	if err != nil {
		return nil, v.translateError(op, err)
	}
	if len(resp.Responses) == 0 {
		return nil, NewExtractionError(v.ProviderName(), op, ErrMalformedResponse, "no response from Vision API")
	}
	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, NewExtractionError(v.ProviderName(), op, ErrExtractionFailed, annotation.Error.Message)
	}

	return v.fromAnnotation(op, annotation, 1)
}

// extractFromFile annotates an inline PDF.
func (v *VisionExtractor) extractFromFile(ctx context.Context, data []byte, mimeType string) (*ExtractedText, error) {
	const op = "extractFromFile"

	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: mimeType,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	})
	if err != nil {
		return nil, v.translateError(op, err)
	}
	if len(resp.Responses) == 0 {
		return nil, NewExtractionError(v.ProviderName(), op, ErrMalformedResponse, "no response from Vision API")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewExtractionError(v.ProviderName(), op, ErrExtractionFailed, fileResp.Error.Message)
	}

	var allText strings.Builder
	var confidenceSum float64
	var confidenceCount int
	pageCount := len(fileResp.Responses)

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, NewExtractionError(v.ProviderName(), op, ErrExtractionFailed,
				fmt.Sprintf("error processing page %d: %s", pageIdx+1, page.Error.Message))
		}
		if page.FullTextAnnotation == nil {
			continue
		}
		if allText.Len() > 0 {
			allText.WriteString("\n")
		}
		allText.WriteString(page.FullTextAnnotation.Text)

		for _, pageInfo := range page.FullTextAnnotation.Pages {
			for _, block := range pageInfo.Blocks {
				if block.Confidence > 0 {
					confidenceSum += float64(block.Confidence)
					confidenceCount++
				}
			}
		}
	}

	text := allText.String()
	if strings.TrimSpace(text) == "" {
		return nil, NewExtractionError(v.ProviderName(), op, ErrEmptyDocument, "no readable text in PDF")
	}

	return &ExtractedText{
		Text:       text,
		Confidence: meanConfidencePercent(confidenceSum, confidenceCount),
		Metadata:   Metadata{PageCount: pageCount},
	}, nil
}

// fromAnnotation builds the result from a single image annotation.
func (v *VisionExtractor) fromAnnotation(op string, annotation *visionpb.AnnotateImageResponse, pageCount int) (*ExtractedText, error) {
	full := annotation.FullTextAnnotation
	if full == nil || strings.TrimSpace(full.Text) == "" {
		return nil, NewExtractionError(v.ProviderName(), op, ErrEmptyDocument, "no readable text in image")
	}

	var confidenceSum float64
	var confidenceCount int
	for _, page := range full.Pages {
		for _, block := range page.Blocks {
			if block.Confidence > 0 {
				confidenceSum += float64(block.Confidence)
				confidenceCount++
			}
		}
	}

	return &ExtractedText{
		Text:       full.Text,
		Confidence: meanConfidencePercent(confidenceSum, confidenceCount),
		Metadata:   Metadata{PageCount: pageCount},
	}, nil
}

// meanConfidencePercent converts a 0-1 confidence sum into the 0-100
// scale rounded to two decimals; zero blocks means zero confidence.
func meanConfidencePercent(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(sum/float64(count)*100*100) / 100
}

// translateError converts Vision API errors into the closed error-kind
// vocabulary.
func (v *VisionExtractor) translateError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "Unauthenticated"):
		return NewExtractionError(v.ProviderName(), op, ErrInvalidCredentials, errStr)
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return NewExtractionError(v.ProviderName(), op, ErrThrottled, errStr)
	case strings.Contains(errStr, "DeadlineExceeded"), strings.Contains(errStr, "context deadline exceeded"):
		return NewExtractionError(v.ProviderName(), op, ErrTimeout, errStr)
	case strings.Contains(errStr, "UNAVAILABLE"):
		return NewExtractionError(v.ProviderName(), op, ErrServiceUnavailable, errStr)
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewExtractionError(v.ProviderName(), op, ErrUnsupportedFormat, errStr)
	default:
		return NewExtractionError(v.ProviderName(), op, ErrExtractionFailed, errStr)
	}
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
