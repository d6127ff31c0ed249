// Package mimetype normalizes declared MIME types and answers which
// providers accept which formats. Pure lookup tables, no side effects.
package mimetype

import (
	"net/url"
	"path"
	"strings"
)

// Well-known MIME types used throughout the pipeline.
const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	WebP = "image/webp"
	TIFF = "image/tiff"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	PDF  = "application/pdf"

	// OctetStream is the best-effort fallback when nothing matches.
	OctetStream = "application/octet-stream"
)

// aliases maps common misspellings and shorthands onto canonical types.
var aliases = map[string]string{
	"image/jpg":       JPEG,
	"image/pjpeg":     JPEG,
	"jpg":             JPEG,
	"jpeg":            JPEG,
	"png":             PNG,
	"image/x-png":     PNG,
	"webp":            WebP,
	"tif":             TIFF,
	"tiff":            TIFF,
	"image/tif":       TIFF,
	"gif":             GIF,
	"bmp":             BMP,
	"image/x-bmp":     BMP,
	"image/x-ms-bmp":  BMP,
	"pdf":             PDF,
	"application/x-pdf": PDF,
}

// canonical is the set of types the pipeline knows how to route at all.
var canonical = map[string]bool{
	JPEG: true,
	PNG:  true,
	WebP: true,
	TIFF: true,
	GIF:  true,
	BMP:  true,
	PDF:  true,
}

// providerSupport lists the formats each extraction backend accepts.
// Keys match the provider names reported by TextExtractor.ProviderName.
var providerSupport = map[string]map[string]bool{
	"documentai": {JPEG: true, PNG: true, WebP: true, TIFF: true, GIF: true, BMP: true, PDF: true},
	"vision":     {JPEG: true, PNG: true, WebP: true, TIFF: true, GIF: true, BMP: true, PDF: true},
	"gemini":     {JPEG: true, PNG: true, WebP: true, PDF: true},
	"tesseract":  {JPEG: true, PNG: true, TIFF: true, BMP: true},
	// QR detection works on raster images only; PDF is rejected outright.
	"qr": {JPEG: true, PNG: true, WebP: true, GIF: true, BMP: true, TIFF: true},
}

// extensions maps URL file extensions onto MIME types for downloads
// whose response carries no usable content-type header.
var extensions = map[string]string{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".webp": WebP,
	".tif":  TIFF,
	".tiff": TIFF,
	".gif":  GIF,
	".bmp":  BMP,
	".pdf":  PDF,
	".json": "application/json",
	".xml":  "application/xml",
}

// Normalize lowercases the declared type, resolves known aliases, and
// strips any parameters (e.g. "; charset=utf-8"). Unrecognized types
// fall back to def.
func Normalize(mimeType, def string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" {
		return def
	}
	if mapped, ok := aliases[mt]; ok {
		return mapped
	}
	if canonical[mt] {
		return mt
	}
	return def
}

// Supports reports whether the named provider accepts the given type.
// Unknown providers support nothing.
func Supports(provider, mimeType string) bool {
	set, ok := providerSupport[strings.ToLower(provider)]
	if !ok {
		return false
	}
	return set[Normalize(mimeType, "")]
}

// IsImage reports whether the type is a raster image the QR detector
// can work with.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(Normalize(mimeType, ""), "image/")
}

// DetectFromURL infers a MIME type from the URL's file extension.
// Returns application/octet-stream when nothing matches.
func DetectFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return OctetStream
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if mt, ok := extensions[ext]; ok {
		return mt
	}
	return OctetStream
}
