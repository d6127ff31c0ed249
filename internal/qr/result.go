// Package qr detects QR codes embedded in document images, classifies
// their payloads, and resolves QR-referenced remote documents.
//
// Detection failures are normal outcomes, not errors: the detector
// returns "not found" and the orchestrator decides whether that is fatal
// for the document sub-type at hand. All processing failures are carried
// as structured result fields so callers can apply the required-vs-
// optional policy without unwinding exceptions.
package qr

// ContentType classifies the shape of a decoded QR payload.
type ContentType string

const (
	ContentTypePlainText  ContentType = "PLAIN_TEXT"
	ContentTypeJSON       ContentType = "JSON"
	ContentTypeJSONURL    ContentType = "JSON_URL"
	ContentTypeXML        ContentType = "XML"
	ContentTypeXMLURL     ContentType = "XML_URL"
	ContentTypeTextAndURL ContentType = "TEXT_AND_URL"
	ContentTypeVCURL      ContentType = "VC_URL"
	ContentTypeDocURL     ContentType = "DOC_URL"
)

// ErrorType is the closed vocabulary of QR processing failures.
type ErrorType string

const (
	ErrorTypeQRNotFound             ErrorType = "QR_NOT_FOUND"
	ErrorTypeInvalidJSON            ErrorType = "INVALID_JSON"
	ErrorTypeInvalidXML             ErrorType = "INVALID_XML"
	ErrorTypeInvalidURL             ErrorType = "INVALID_URL"
	ErrorTypeNetworkError           ErrorType = "NETWORK_ERROR"
	ErrorTypeDocumentNotFound       ErrorType = "DOCUMENT_NOT_FOUND"
	ErrorTypeAccessDenied           ErrorType = "ACCESS_DENIED"
	ErrorTypeTimeout                ErrorType = "TIMEOUT"
	ErrorTypeUnsupportedContentType ErrorType = "UNSUPPORTED_CONTENT_TYPE"
	ErrorTypeUnsupportedIssuer      ErrorType = "UNSUPPORTED_ISSUER"
	ErrorTypeUnsupportedMethod      ErrorType = "UNSUPPORTED_METHOD"
	ErrorTypeProcessingError        ErrorType = "PROCESSING_ERROR"
	ErrorTypeUnknown                ErrorType = "UNKNOWN_ERROR"
)

// DownloadedDocument is a document fetched because a QR payload
// referenced it.
type DownloadedDocument struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

// ProcessingResult is the terminal outcome of QR processing for one
// document upload. It is constructed once and never mutated afterwards.
type ProcessingResult struct {
	QRCodeDetected     bool                `json:"qr_code_detected"`
	QRCodeContent      string              `json:"qr_code_content,omitempty"`
	ContentType        ContentType         `json:"content_type,omitempty"`
	ProcessedData      map[string]any      `json:"processed_data,omitempty"`
	DownloadedDocument *DownloadedDocument `json:"downloaded_document,omitempty"`

	// Error is the user-facing message; TechnicalError preserves the raw
	// failure for diagnostics. Both empty on success.
	Error          string    `json:"error,omitempty"`
	ErrorType      ErrorType `json:"error_type,omitempty"`
	TechnicalError string    `json:"technical_error,omitempty"`

	// IsRequired tells the OCR stage whether a QR failure is fatal for
	// this document sub-type or processing may fall through to plain OCR.
	IsRequired bool `json:"is_required"`
}

// Failed reports whether the result carries an error.
func (r *ProcessingResult) Failed() bool {
	return r != nil && r.ErrorType != ""
}

// errorResult builds a structured failure result.
func errorResult(contentType ContentType, content string, errType ErrorType, userMsg, technical string) *ProcessingResult {
	return &ProcessingResult{
		QRCodeDetected: content != "",
		QRCodeContent:  content,
		ContentType:    contentType,
		Error:          userMsg,
		ErrorType:      errType,
		TechnicalError: technical,
		IsRequired:     true,
	}
}
