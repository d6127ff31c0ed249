package qr

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"docpipe/internal/logger"
)

// handlerFunc processes one decoded QR payload of a known content type.
type handlerFunc func(ctx context.Context, content string) *ProcessingResult

// Processor routes a decoded QR payload to the handler registered for
// its declared content type. Handlers are a flat table: issuer-specific
// overrides are merged over the shared defaults at construction, so
// there is no virtual dispatch at processing time.
type Processor struct {
	issuer     string
	downloader *Downloader
	handlers   map[ContentType]handlerFunc
	log        zerolog.Logger
}

var embeddedURLPattern = regexp.MustCompile(`https?://\S+`)

var (
	xmlURLTagPattern  = regexp.MustCompile(`(?i)<url>\s*(.*?)\s*</url>`)
	xmlURLAttrPattern = regexp.MustCompile(`(?i)\burl\s*=\s*"([^"]+)"`)
)

// CanProcess reports whether this processor handles the content type.
func (p *Processor) CanProcess(contentType ContentType) bool {
	_, ok := p.handlers[contentType]
	return ok
}

// Issuer returns the issuer this processor was configured for; empty
// means the default processor.
func (p *Processor) Issuer() string { return p.issuer }

// Process runs the registered handler for the content type. Unsupported
// combinations yield a structured error result, never a panic or error
// return.
func (p *Processor) Process(ctx context.Context, contentType ContentType, content string) *ProcessingResult {
	handler, ok := p.handlers[contentType]
	if !ok {
		p.log.Warn().
			Str("content_type", string(contentType)).
			Str("issuer", p.issuer).
			Msg("Unsupported QR content type for issuer")
		return errorResult(contentType, content, ErrorTypeUnsupportedContentType,
			"This document's QR code format is not supported.",
			fmt.Sprintf("no handler for content type %s (issuer %q)", contentType, p.issuer))
	}
	return handler(ctx, content)
}

// --- shared default handlers ---

// handlePlainText trims the payload and returns it as-is.
func (p *Processor) handlePlainText(_ context.Context, content string) *ProcessingResult {
	trimmed := strings.TrimSpace(content)
	return &ProcessingResult{
		QRCodeDetected: true,
		QRCodeContent:  trimmed,
		ContentType:    ContentTypePlainText,
		ProcessedData:  map[string]any{"text": trimmed},
		IsRequired:     true,
	}
}

// handleJSON parses the payload as a JSON object.
func (p *Processor) handleJSON(_ context.Context, content string) *ProcessingResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return errorResult(ContentTypeJSON, content, ErrorTypeInvalidJSON,
			"The QR code does not contain valid data.", err.Error())
	}
	return &ProcessingResult{
		QRCodeDetected: true,
		QRCodeContent:  content,
		ContentType:    ContentTypeJSON,
		ProcessedData:  data,
		IsRequired:     true,
	}
}

// handleJSONURL parses the payload as JSON and downloads the document
// referenced by its url field.
func (p *Processor) handleJSONURL(ctx context.Context, content string) *ProcessingResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return errorResult(ContentTypeJSONURL, content, ErrorTypeInvalidJSON,
			"The QR code does not contain valid data.", err.Error())
	}
	rawURL, _ := data["url"].(string)
	if strings.TrimSpace(rawURL) == "" {
		return errorResult(ContentTypeJSONURL, content, ErrorTypeInvalidURL,
			UserMessageFor(ErrorTypeInvalidURL), "JSON payload has no url field")
	}
	return p.downloadResult(ctx, ContentTypeJSONURL, content, rawURL, data)
}

// handleXML validates the payload shape; the raw XML is passed through.
func (p *Processor) handleXML(_ context.Context, content string) *ProcessingResult {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return errorResult(ContentTypeXML, content, ErrorTypeInvalidXML,
			"The QR code does not contain valid data.", "payload is not XML-shaped")
	}
	return &ProcessingResult{
		QRCodeDetected: true,
		QRCodeContent:  content,
		ContentType:    ContentTypeXML,
		ProcessedData:  map[string]any{"xml": trimmed},
		IsRequired:     true,
	}
}

// handleXMLURL extracts a URL from an XML payload (tag, attribute, or
// the whole trimmed content) and downloads the referenced document.
func (p *Processor) handleXMLURL(ctx context.Context, content string) *ProcessingResult {
	trimmed := strings.TrimSpace(content)
	var rawURL string
	if m := xmlURLTagPattern.FindStringSubmatch(trimmed); m != nil {
		rawURL = m[1]
	} else if m := xmlURLAttrPattern.FindStringSubmatch(trimmed); m != nil {
		rawURL = m[1]
	} else {
		rawURL = trimmed
	}
	return p.downloadResult(ctx, ContentTypeXMLURL, content, rawURL, nil)
}

// handleTextAndURL splits free text from the first embedded URL.
func (p *Processor) handleTextAndURL(ctx context.Context, content string) *ProcessingResult {
	loc := embeddedURLPattern.FindStringIndex(content)
	if loc == nil {
		return errorResult(ContentTypeTextAndURL, content, ErrorTypeInvalidURL,
			UserMessageFor(ErrorTypeInvalidURL), "no URL found in payload")
	}
	rawURL := content[loc[0]:loc[1]]
	text := strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	return p.downloadResult(ctx, ContentTypeTextAndURL, content, rawURL, map[string]any{"text": text})
}

// handleVCURL fetches a credential document from the payload URL.
func (p *Processor) handleVCURL(ctx context.Context, content string) *ProcessingResult {
	return p.fetchCredential(ctx, strings.TrimSpace(content), content)
}

// handleDocURL downloads the document at the payload URL directly.
func (p *Processor) handleDocURL(ctx context.Context, content string) *ProcessingResult {
	return p.downloadResult(ctx, ContentTypeDocURL, content, strings.TrimSpace(content), nil)
}

// --- issuer overrides ---

// handleTextAndURLDelimited splits on pipe or comma delimiters instead
// of searching for an embedded URL (digilocker payload convention).
func (p *Processor) handleTextAndURLDelimited(ctx context.Context, content string) *ProcessingResult {
	sep := "|"
	if !strings.Contains(content, sep) {
		sep = ","
	}
	parts := strings.Split(content, sep)

	var rawURL string
	var texts []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if rawURL == "" && embeddedURLPattern.MatchString(part) {
			rawURL = embeddedURLPattern.FindString(part)
			continue
		}
		if part != "" {
			texts = append(texts, part)
		}
	}
	if rawURL == "" {
		return errorResult(ContentTypeTextAndURL, content, ErrorTypeInvalidURL,
			UserMessageFor(ErrorTypeInvalidURL), "no URL segment in delimited payload")
	}
	return p.downloadResult(ctx, ContentTypeTextAndURL, content, rawURL,
		map[string]any{"text": strings.Join(texts, " ")})
}

// handleVCURLSuffixed appends the issuer's .vc suffix before fetching
// the credential (dhiway endpoint convention).
func (p *Processor) handleVCURLSuffixed(ctx context.Context, content string) *ProcessingResult {
	rawURL := strings.TrimSpace(content)
	if !strings.HasSuffix(rawURL, ".vc") {
		rawURL += ".vc"
	}
	return p.fetchCredential(ctx, rawURL, content)
}

// --- helpers ---

// fetchCredential GETs a credential endpoint and parses the JSON(-LD)
// body as processed data.
func (p *Processor) fetchCredential(ctx context.Context, rawURL, content string) *ProcessingResult {
	doc, err := p.downloader.Download(ctx, rawURL)
	if err != nil {
		return downloadFailure(ContentTypeVCURL, content, err)
	}

	var credential map[string]any
	if err := json.Unmarshal(doc.Data, &credential); err != nil {
		return errorResult(ContentTypeVCURL, content, ErrorTypeInvalidJSON,
			"The issuer returned an unreadable credential.", err.Error())
	}
	return &ProcessingResult{
		QRCodeDetected:     true,
		QRCodeContent:      content,
		ContentType:        ContentTypeVCURL,
		ProcessedData:      credential,
		DownloadedDocument: doc,
		IsRequired:         true,
	}
}

// downloadResult downloads a referenced document and assembles the
// success result, carrying any already-extracted processed data.
func (p *Processor) downloadResult(ctx context.Context, contentType ContentType, content, rawURL string, data map[string]any) *ProcessingResult {
	doc, err := p.downloader.Download(ctx, rawURL)
	if err != nil {
		return downloadFailure(contentType, content, err)
	}
	return &ProcessingResult{
		QRCodeDetected:     true,
		QRCodeContent:      content,
		ContentType:        contentType,
		ProcessedData:      data,
		DownloadedDocument: doc,
		IsRequired:         true,
	}
}

// downloadFailure converts a download error into a structured result.
func downloadFailure(contentType ContentType, content string, err error) *ProcessingResult {
	if dlErr, ok := err.(*DownloadError); ok {
		return errorResult(contentType, content, dlErr.Type, dlErr.UserMessage, dlErr.Technical)
	}
	return errorResult(contentType, content, ErrorTypeUnknown, UserMessageFor(ErrorTypeUnknown), err.Error())
}

func newProcessor(issuer string, downloader *Downloader) *Processor {
	return &Processor{
		issuer:     issuer,
		downloader: downloader,
		handlers:   make(map[ContentType]handlerFunc),
		log:        logger.WithComponent("qr-processor"),
	}
}
