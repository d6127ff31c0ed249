package qr

import (
	"fmt"
	"strings"
)

// Issuer configuration keys with customized QR handling.
const (
	IssuerDigilocker = "digilocker"
	IssuerDhiway     = "dhiway"
)

// defaultContentTypes lists everything the shared handlers support.
var defaultContentTypes = []ContentType{
	ContentTypePlainText,
	ContentTypeJSON,
	ContentTypeJSONURL,
	ContentTypeXML,
	ContentTypeXMLURL,
	ContentTypeTextAndURL,
	ContentTypeVCURL,
	ContentTypeDocURL,
}

// knownIssuers is the registry of issuer names a processor can be built
// for. The empty issuer is the default processor.
var knownIssuers = map[string]bool{
	"":               true,
	IssuerDigilocker: true,
	IssuerDhiway:     true,
}

// NewProcessor builds the content-type handler table for an issuer:
// the shared default handlers, with the issuer's overrides merged on
// top. Unknown issuers are rejected at construction rather than
// falling back to default handling silently.
func NewProcessor(issuer string, downloader *Downloader) (*Processor, error) {
	issuer = strings.ToLower(strings.TrimSpace(issuer))
	if !knownIssuers[issuer] {
		return nil, fmt.Errorf("qr: unsupported issuer: %s", issuer)
	}

	p := newProcessor(issuer, downloader)

	// Shared defaults cover every content type.
	p.handlers[ContentTypePlainText] = p.handlePlainText
	p.handlers[ContentTypeJSON] = p.handleJSON
	p.handlers[ContentTypeJSONURL] = p.handleJSONURL
	p.handlers[ContentTypeXML] = p.handleXML
	p.handlers[ContentTypeXMLURL] = p.handleXMLURL
	p.handlers[ContentTypeTextAndURL] = p.handleTextAndURL
	p.handlers[ContentTypeVCURL] = p.handleVCURL
	p.handlers[ContentTypeDocURL] = p.handleDocURL

	// Issuer overrides replace only the types they customize.
	switch issuer {
	case IssuerDigilocker:
		p.handlers[ContentTypeTextAndURL] = p.handleTextAndURLDelimited
	case IssuerDhiway:
		p.handlers[ContentTypeVCURL] = p.handleVCURLSuffixed
	}

	return p, nil
}

// SupportedContentTypes returns the content types a given issuer's
// processor handles, in declaration order.
func SupportedContentTypes(issuer string) []ContentType {
	out := make([]ContentType, len(defaultContentTypes))
	copy(out, defaultContentTypes)
	return out
}

// ParseContentType validates a configured content-type string.
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range defaultContentTypes {
		if ct == known {
			return ct, nil
		}
	}
	return "", fmt.Errorf("qr: unknown content type: %s", s)
}
