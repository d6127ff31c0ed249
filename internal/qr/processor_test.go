package qr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultProcessor(t *testing.T) *Processor {
	t.Helper()
	p, err := NewProcessor("", NewDownloader())
	require.NoError(t, err)
	return p
}

func TestPlainTextPayload(t *testing.T) {
	p := defaultProcessor(t)

	result := p.Process(context.Background(), ContentTypePlainText, "  HELLO-WORLD  ")

	assert.True(t, result.QRCodeDetected)
	assert.Equal(t, "HELLO-WORLD", result.QRCodeContent)
	assert.Equal(t, map[string]any{"text": "HELLO-WORLD"}, result.ProcessedData)
	assert.False(t, result.Failed())
}

func TestJSONPayload(t *testing.T) {
	p := defaultProcessor(t)

	result := p.Process(context.Background(), ContentTypeJSON, `{"rollNumber":"R-101","name":"A. Student"}`)
	require.False(t, result.Failed())
	assert.Equal(t, "R-101", result.ProcessedData["rollNumber"])

	bad := p.Process(context.Background(), ContentTypeJSON, `{not json`)
	assert.Equal(t, ErrorTypeInvalidJSON, bad.ErrorType)
	assert.NotEmpty(t, bad.Error)
	assert.NotEmpty(t, bad.TechnicalError)
}

func TestJSONURLUnreachableHost(t *testing.T) {
	p := defaultProcessor(t)

	result := p.Process(context.Background(), ContentTypeJSONURL, `{"url":"https://nonexistent.invalid/doc"}`)

	assert.Equal(t, ErrorTypeNetworkError, result.ErrorType)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.DownloadedDocument)
}

func TestJSONURLMissingURLField(t *testing.T) {
	p := defaultProcessor(t)

	result := p.Process(context.Background(), ContentTypeJSONURL, `{"document":"no link here"}`)
	assert.Equal(t, ErrorTypeInvalidURL, result.ErrorType)
}

func TestJSONURLDownloadsDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	p := defaultProcessor(t)
	payload := fmt.Sprintf(`{"url":%q}`, srv.URL+"/marksheet.png")
	result := p.Process(context.Background(), ContentTypeJSONURL, payload)

	require.False(t, result.Failed())
	require.NotNil(t, result.DownloadedDocument)
	assert.Equal(t, "image/png", result.DownloadedDocument.MimeType)
	assert.Equal(t, []byte("png-bytes"), result.DownloadedDocument.Data)
}

func TestXMLValidation(t *testing.T) {
	p := defaultProcessor(t)

	good := p.Process(context.Background(), ContentTypeXML, "<cert><holder>X</holder></cert>")
	require.False(t, good.Failed())
	assert.Equal(t, "<cert><holder>X</holder></cert>", good.ProcessedData["xml"])

	bad := p.Process(context.Background(), ContentTypeXML, "not xml at all")
	assert.Equal(t, ErrorTypeInvalidXML, bad.ErrorType)
}

func TestXMLURLExtraction(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_, _ = w.Write([]byte("doc"))
	}))
	defer srv.Close()

	p := defaultProcessor(t)

	// URL inside a tag
	result := p.Process(context.Background(), ContentTypeXMLURL,
		fmt.Sprintf("<meta><url>%s/tagged.pdf</url></meta>", srv.URL))
	require.False(t, result.Failed())
	assert.Equal(t, "/tagged.pdf", requested)

	// URL in an attribute
	result = p.Process(context.Background(), ContentTypeXMLURL,
		fmt.Sprintf(`<doc url="%s/attr.pdf"/>`, srv.URL))
	require.False(t, result.Failed())
	assert.Equal(t, "/attr.pdf", requested)

	// bare URL treated as the whole content
	result = p.Process(context.Background(), ContentTypeXMLURL, srv.URL+"/bare.pdf")
	require.False(t, result.Failed())
	assert.Equal(t, "/bare.pdf", requested)
}

func TestTextAndURLSplitting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("doc"))
	}))
	defer srv.Close()

	p := defaultProcessor(t)
	result := p.Process(context.Background(), ContentTypeTextAndURL,
		"Migration Certificate 2024 "+srv.URL+"/cert.pdf")

	require.False(t, result.Failed())
	assert.Equal(t, "Migration Certificate 2024", result.ProcessedData["text"])
	require.NotNil(t, result.DownloadedDocument)

	noURL := p.Process(context.Background(), ContentTypeTextAndURL, "just text, nothing else")
	assert.Equal(t, ErrorTypeInvalidURL, noURL.ErrorType)
}

func TestDigilockerDelimitedTextAndURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("doc"))
	}))
	defer srv.Close()

	p, err := NewProcessor(IssuerDigilocker, NewDownloader())
	require.NoError(t, err)

	result := p.Process(context.Background(), ContentTypeTextAndURL,
		"CBSE|Class XII|"+srv.URL+"/marksheet.pdf")
	require.False(t, result.Failed())
	assert.Equal(t, "CBSE Class XII", result.ProcessedData["text"])

	// comma fallback when no pipe present
	result = p.Process(context.Background(), ContentTypeTextAndURL,
		"State Board,"+srv.URL+"/marksheet.pdf")
	require.False(t, result.Failed())
	assert.Equal(t, "State Board", result.ProcessedData["text"])
}

func TestDhiwayVCURLSuffix(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"@context":          []string{"https://www.w3.org/2018/credentials/v1"},
			"credentialSubject": map[string]any{"name": "A. Student"},
		})
	}))
	defer srv.Close()

	p, err := NewProcessor(IssuerDhiway, NewDownloader())
	require.NoError(t, err)

	result := p.Process(context.Background(), ContentTypeVCURL, srv.URL+"/credential/abc123")
	require.False(t, result.Failed())
	assert.Equal(t, "/credential/abc123.vc", requested)
	assert.Contains(t, result.ProcessedData, "credentialSubject")

	// already suffixed URLs are left alone
	result = p.Process(context.Background(), ContentTypeVCURL, srv.URL+"/credential/abc123.vc")
	require.False(t, result.Failed())
	assert.Equal(t, "/credential/abc123.vc", requested)
}

func TestRoutingExhaustiveness(t *testing.T) {
	for issuer := range knownIssuers {
		p, err := NewProcessor(issuer, NewDownloader())
		require.NoError(t, err, "issuer %q", issuer)
		for _, ct := range SupportedContentTypes(issuer) {
			assert.True(t, p.CanProcess(ct), "issuer %q should process %s", issuer, ct)
		}
		assert.False(t, p.CanProcess(ContentType("BOGUS")))
	}
}

func TestUnsupportedContentTypeIsStructured(t *testing.T) {
	p := defaultProcessor(t)
	result := p.Process(context.Background(), ContentType("BOGUS"), "payload")

	assert.Equal(t, ErrorTypeUnsupportedContentType, result.ErrorType)
	assert.True(t, result.IsRequired)
}

func TestUnknownIssuerRejected(t *testing.T) {
	_, err := NewProcessor("unknown-issuer", NewDownloader())
	assert.Error(t, err)
}
