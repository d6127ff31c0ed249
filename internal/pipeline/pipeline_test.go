package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docpipe/internal/mapping"
	"docpipe/internal/ocr"
	"docpipe/internal/qr"
	"docpipe/internal/schema"
)

// stubExtractor records what it was asked to extract and returns canned
// text. It supports images and PDFs only.
type stubExtractor struct {
	text     string
	called   bool
	lastData []byte
}

func (s *stubExtractor) ExtractText(_ context.Context, data []byte, _ string) (*ocr.ExtractedText, error) {
	s.called = true
	s.lastData = data
	return &ocr.ExtractedText{
		Text:       s.text,
		Confidence: 88,
		Metadata:   ocr.Metadata{Provider: s.ProviderName()},
	}, nil
}

func (s *stubExtractor) SupportsFileType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

func (s *stubExtractor) ProviderName() string { return "stub" }

func (s *stubExtractor) ValidatePermissions(_ context.Context) error { return nil }

func encodeQRPNG(t *testing.T, content string) []byte {
	t.Helper()
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(content, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, matrix))
	return buf.Bytes()
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func lookupFor(contentType qr.ContentType) qr.ConfigLookup {
	return func(docSubType string) (qr.TypeConfig, bool) {
		if docSubType == "marksheet" {
			return qr.TypeConfig{ContentType: contentType}, true
		}
		return qr.TypeConfig{}, false
	}
}

func newTestPipeline(t *testing.T, extractor ocr.TextExtractor, lookup qr.ConfigLookup) *Pipeline {
	t.Helper()
	processor, err := qr.NewProcessor("", qr.NewDownloader())
	require.NoError(t, err)
	orchestrator := qr.NewOrchestrator(qr.NewDetector(), processor, lookup)
	return NewWithDeps(extractor, orchestrator, mapping.NewCoordinator(nil))
}

func TestPipelinePlainOCRWhenUnconfigured(t *testing.T) {
	extractor := &stubExtractor{text: "Name: Ravi Kumar\nPercentage: 87.5%"}
	p := newTestPipeline(t, extractor, nil)

	fs := schema.New()
	fs.Add("name", schema.FieldSpec{Type: schema.TypeString})
	fs.Add("percentage", schema.FieldSpec{Type: schema.TypeNumber})

	result, err := p.Process(context.Background(), blankPNG(t), "image/png", "certificate", "marksheet", fs)
	require.NoError(t, err)

	assert.Nil(t, result.QR)
	assert.True(t, extractor.called)
	require.NotNil(t, result.Mapping)
	assert.Equal(t, mapping.ProcessingMethodKeyword, result.Mapping.ProcessingMethod)
	assert.Equal(t, 87.5, result.Mapping.MappedData["percentage"])
}

func TestPipelineRequiredQRFailure(t *testing.T) {
	extractor := &stubExtractor{text: "never used"}
	p := newTestPipeline(t, extractor, lookupFor(qr.ContentTypePlainText))

	result, err := p.Process(context.Background(), blankPNG(t), "image/png", "certificate", "marksheet", schema.New())

	require.ErrorIs(t, err, ErrQRRequired)
	require.NotNil(t, result.QR)
	assert.Equal(t, qr.ErrorTypeQRNotFound, result.QR.ErrorType)
	assert.False(t, result.QR.QRCodeDetected)
	assert.NotEmpty(t, result.QR.Error)
	assert.False(t, extractor.called)
}

func TestPipelinePlainTextQRShortCircuitsOCR(t *testing.T) {
	extractor := &stubExtractor{text: "never used"}
	p := newTestPipeline(t, extractor, lookupFor(qr.ContentTypePlainText))

	fs := schema.New()
	fs.Add("name", schema.FieldSpec{Type: schema.TypeString})

	qrImage := encodeQRPNG(t, "Name: Ravi Kumar")
	result, err := p.Process(context.Background(), qrImage, "image/png", "certificate", "marksheet", fs)
	require.NoError(t, err)

	assert.False(t, extractor.called)
	require.NotNil(t, result.QR)
	assert.True(t, result.QR.QRCodeDetected)
	require.NotNil(t, result.Text)
	assert.Equal(t, "Name: Ravi Kumar", result.Text.Text)
	assert.Equal(t, float64(100), result.Text.Confidence)
	assert.Equal(t, "Ravi Kumar", result.Mapping.MappedData["name"])
}

func TestPipelineReExtractsFromDownloadedDocument(t *testing.T) {
	remote := blankPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(remote)
	}))
	defer srv.Close()

	extractor := &stubExtractor{text: "Name: Ravi Kumar"}
	p := newTestPipeline(t, extractor, lookupFor(qr.ContentTypeJSONURL))

	qrImage := encodeQRPNG(t, `{"url":"`+srv.URL+`/scan.png"}`)
	result, err := p.Process(context.Background(), qrImage, "image/png", "certificate", "marksheet", schema.New())
	require.NoError(t, err)

	require.NotNil(t, result.QR)
	require.NotNil(t, result.QR.DownloadedDocument)
	assert.True(t, extractor.called)
	assert.Equal(t, remote, extractor.lastData)
}

func TestPipelineTextualDownloadSkipsOCR(t *testing.T) {
	const credential = `{"credentialSubject":{"name":"Ravi Kumar"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(credential))
	}))
	defer srv.Close()

	extractor := &stubExtractor{text: "never used"}
	p := newTestPipeline(t, extractor, lookupFor(qr.ContentTypeDocURL))

	qrImage := encodeQRPNG(t, srv.URL+"/credential.json")
	result, err := p.Process(context.Background(), qrImage, "image/png", "certificate", "marksheet", schema.New())
	require.NoError(t, err)

	assert.False(t, extractor.called)
	require.NotNil(t, result.Text)
	assert.Equal(t, credential, result.Text.Text)
}
