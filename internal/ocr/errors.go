package ocr

import (
	"errors"
	"fmt"
)

// Closed error-kind vocabulary for OCR providers. Adapters translate
// provider-specific failures into exactly one of these.
var (
	// ErrMissingCredentials is returned when a provider's credentials are
	// not configured at all.
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrInvalidCredentials is returned when credentials are present but
	// rejected by the provider.
	ErrInvalidCredentials = errors.New("invalid provider credentials")

	// ErrInvalidConfiguration is returned for any other configuration
	// problem (missing project, bad region, unknown processor).
	ErrInvalidConfiguration = errors.New("invalid provider configuration")

	// ErrUnsupportedFormat is returned when the MIME type is not accepted
	// by the selected provider. Rejected before any network call.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrThrottled is returned on provider rate limiting or quota
	// exhaustion; callers may retry later.
	ErrThrottled = errors.New("provider request throttled")

	// ErrTimeout is returned when the provider call exceeded its deadline.
	ErrTimeout = errors.New("provider request timed out")

	// ErrServiceUnavailable is returned on temporary provider outages.
	ErrServiceUnavailable = errors.New("provider temporarily unavailable")

	// ErrEmptyDocument is returned when the provider answered but no
	// readable text was found. With no fallback path, this is terminal.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrMalformedResponse is returned when the provider response has an
	// unexpected shape (missing candidates, empty parts).
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrExtractionFailed is the catch-all for provider-side failures.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// ExtractionError wraps errors with context about the failed extraction.
type ExtractionError struct {
	// Op is the operation that failed (e.g. "ExtractText", "ValidatePermissions").
	Op string

	// Provider is the backend that produced the failure.
	Provider string

	// Err is the underlying error, normally one of the sentinels above.
	Err error

	// Details preserves the raw technical message.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s: %s failed: %s: %v", e.Provider, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s: %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(provider, op string, err error, details string) *ExtractionError {
	return &ExtractionError{Op: op, Provider: provider, Err: err, Details: details}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(provider, op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err // Already wrapped
	}
	return NewExtractionError(provider, op, err, details)
}
