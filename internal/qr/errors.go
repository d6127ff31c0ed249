package qr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// DownloadError is a classified failure while fetching a QR-referenced
// document. UserMessage is safe to surface to the uploader; Technical
// preserves the raw cause.
type DownloadError struct {
	Type        ErrorType
	URL         string
	UserMessage string
	Technical   string
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("qr: download %s failed (%s): %s", e.URL, e.Type, e.Technical)
}

// userMessages maps error types to the actionable messages shown to the
// document uploader.
var userMessages = map[ErrorType]string{
	ErrorTypeInvalidURL:       "The QR code references an invalid document link.",
	ErrorTypeNetworkError:     "The referenced document could not be reached. Please try again later.",
	ErrorTypeDocumentNotFound: "The referenced document no longer exists at the issuer.",
	ErrorTypeAccessDenied:     "Access to the referenced document was denied by the issuer.",
	ErrorTypeTimeout:          "Fetching the referenced document timed out. Please try again.",
	ErrorTypeUnknown:          "The referenced document could not be downloaded.",
}

// UserMessageFor returns the uploader-facing message for an error type.
func UserMessageFor(t ErrorType) string {
	if msg, ok := userMessages[t]; ok {
		return msg
	}
	return userMessages[ErrorTypeUnknown]
}

// newDownloadError classifies err into the QR error vocabulary. Every
// URL-fetch failure in the package funnels through here.
func newDownloadError(rawURL string, err error) *DownloadError {
	errType := classifyFetchError(err)
	return &DownloadError{
		Type:        errType,
		URL:         rawURL,
		UserMessage: UserMessageFor(errType),
		Technical:   err.Error(),
	}
}

// newStatusError classifies a non-2xx HTTP status.
func newStatusError(rawURL string, status int) *DownloadError {
	var errType ErrorType
	switch status {
	case 404, 410:
		errType = ErrorTypeDocumentNotFound
	case 401, 403:
		errType = ErrorTypeAccessDenied
	case 408, 504:
		errType = ErrorTypeTimeout
	default:
		errType = ErrorTypeUnknown
	}
	return &DownloadError{
		Type:        errType,
		URL:         rawURL,
		UserMessage: UserMessageFor(errType),
		Technical:   fmt.Sprintf("unexpected HTTP status %d", status),
	}
}

// classifyFetchError maps transport-level failures onto error types.
func classifyFetchError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ErrorTypeTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeNetworkError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorTypeNetworkError
	}

	var parseErr *url.Error
	if errors.As(err, &parseErr) && parseErr.Op == "parse" {
		return ErrorTypeInvalidURL
	}

	// url.Error wrapping anything else is still a transport failure.
	if errors.As(err, &urlErr) {
		return ErrorTypeNetworkError
	}
	return ErrorTypeUnknown
}
