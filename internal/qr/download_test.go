package qr

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusNotFound, ErrorTypeDocumentNotFound},
		{http.StatusGone, ErrorTypeDocumentNotFound},
		{http.StatusForbidden, ErrorTypeAccessDenied},
		{http.StatusUnauthorized, ErrorTypeAccessDenied},
		{http.StatusGatewayTimeout, ErrorTypeTimeout},
		{http.StatusInternalServerError, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := NewDownloader().Download(context.Background(), srv.URL)
		srv.Close()

		var dlErr *DownloadError
		require.ErrorAs(t, err, &dlErr, "status %d", tt.status)
		assert.Equal(t, tt.want, dlErr.Type, "status %d", tt.status)
		assert.NotEmpty(t, dlErr.UserMessage)
		assert.NotEmpty(t, dlErr.Technical)
	}
}

func TestDownloadInvalidURL(t *testing.T) {
	d := NewDownloader()

	for _, raw := range []string{"", "not a url", "relative/path", "ftp://example.com/doc"} {
		_, err := d.Download(context.Background(), raw)
		var dlErr *DownloadError
		require.ErrorAs(t, err, &dlErr, "url %q", raw)
		assert.Equal(t, ErrorTypeInvalidURL, dlErr.Type, "url %q", raw)
	}
}

func TestDownloadSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), MaxDownloadBytes+1024))
	}))
	defer srv.Close()

	_, err := NewDownloader().Download(context.Background(), srv.URL+"/big.pdf")

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, ErrorTypeNetworkError, dlErr.Type)
	assert.Contains(t, dlErr.Technical, "exceeds")
}

func TestDownloadSendsBrowserUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewDownloader().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, ua, "Mozilla/5.0")
}

func TestDownloadMimeFallbackToExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	doc, err := NewDownloader().Download(context.Background(), srv.URL+"/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MimeType)
}

func TestDownloadRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewDownloader().Download(context.Background(), srv.URL+"/loop")
	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Contains(t, dlErr.Technical, "redirects")
}
