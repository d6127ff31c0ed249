package qr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

const (
	// DownloadTimeout bounds one referenced-document fetch.
	DownloadTimeout = 30 * time.Second

	// MaxDownloadBytes caps a referenced document at 10 MB. Enforced at
	// the transport via a limited reader and re-checked after the read.
	MaxDownloadBytes = 10 * 1024 * 1024

	maxRedirects = 5

	// Some government portals reject clients that do not look like a
	// browser, so downloads identify as one.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Downloader fetches QR-referenced documents with bounded size and time.
type Downloader struct {
	client *http.Client
	log    zerolog.Logger
}

// NewDownloader creates a downloader with the package's transport policy.
func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: DownloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		log: logger.WithComponent("qr-downloader"),
	}
}

// NewDownloaderWithClient creates a downloader with an explicit HTTP
// client (for testing).
func NewDownloaderWithClient(client *http.Client) *Downloader {
	return &Downloader{
		client: client,
		log:    logger.WithComponent("qr-downloader"),
	}
}

// Download performs an HTTP GET of the referenced document. Failures
// return a *DownloadError classified into the QR error vocabulary.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*DownloadedDocument, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &DownloadError{
			Type:        ErrorTypeInvalidURL,
			URL:         rawURL,
			UserMessage: UserMessageFor(ErrorTypeInvalidURL),
			Technical:   fmt.Sprintf("not an absolute URL: %q", rawURL),
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &DownloadError{
			Type:        ErrorTypeInvalidURL,
			URL:         rawURL,
			UserMessage: UserMessageFor(ErrorTypeInvalidURL),
			Technical:   fmt.Sprintf("unsupported scheme: %s", parsed.Scheme),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newDownloadError(rawURL, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "*/*")

	d.log.Debug().Str("url", rawURL).Msg("Downloading QR-referenced document")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, newDownloadError(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(rawURL, resp.StatusCode)
	}

	// Read one extra byte past the cap to detect oversized payloads.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, newDownloadError(rawURL, err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, &DownloadError{
			Type:        ErrorTypeNetworkError,
			URL:         rawURL,
			UserMessage: "The referenced document is too large to process.",
			Technical:   fmt.Sprintf("payload exceeds %d bytes", MaxDownloadBytes),
		}
	}

	mimeType := contentTypeOf(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = mimetype.DetectFromURL(rawURL)
	}

	d.log.Info().
		Str("url", rawURL).
		Str("mime_type", mimeType).
		Int("size", len(data)).
		Msg("Downloaded QR-referenced document")

	return &DownloadedDocument{
		Data:     data,
		MimeType: mimeType,
		URL:      rawURL,
	}, nil
}

// contentTypeOf extracts a usable MIME type from a Content-Type header.
// Known document/image types are normalized; anything else (JSON, XML,
// JSON-LD credentials) is kept as declared, minus parameters.
func contentTypeOf(header string) string {
	if normalized := mimetype.Normalize(header, ""); normalized != "" {
		return normalized
	}
	ct := strings.ToLower(strings.TrimSpace(header))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == mimetype.OctetStream {
		return ""
	}
	return ct
}
