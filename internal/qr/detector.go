package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog"
	"github.com/sunshineplan/imgconv"

	"docpipe/internal/logger"
	"docpipe/internal/mimetype"
)

// ErrUnsupportedInput is returned when bytes that cannot carry an
// embedded raster QR code (PDFs, non-images) are handed to the detector.
var ErrUnsupportedInput = fmt.Errorf("qr: detection requires a raster image; convert PDFs to an image before scanning")

// binarizationThreshold is the fixed grayscale cutoff for the
// threshold-binarization strategy.
const binarizationThreshold = 128

// Detector decodes QR codes from document images, trying a fixed
// sequence of image-preprocessing strategies until one succeeds.
type Detector struct {
	reader gozxing.Reader
	log    zerolog.Logger
}

// NewDetector creates a detector.
func NewDetector() *Detector {
	return &Detector{
		reader: qrcode.NewQRCodeReader(),
		log:    logger.WithComponent("qr-detector"),
	}
}

// Detect attempts to decode a QR code from the image bytes. A missing
// QR code is a normal outcome: the empty string with a nil error means
// every strategy was exhausted without a hit. The only error condition
// is unsupported input.
func (d *Detector) Detect(data []byte, mimeType string) (string, error) {
	if !mimetype.Supports("qr", mimeType) {
		return "", ErrUnsupportedInput
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.log.Warn().Err(err).Str("mime_type", mimeType).Msg("Failed to decode image for QR detection")
		return "", nil
	}

	// Strategy order is fixed; the first decodable payload wins.
	strategies := []struct {
		name string
		fn   func(image.Image) (string, error)
	}{
		{"grayscale", d.decodeGrayscale},
		{"try-harder", d.decodeTryHarder},
		{"upscale-2x", d.decodeScaled(2.0)},
		{"downscale-0.5x", d.decodeScaled(0.5)},
		{"threshold-binarize", d.decodeBinarized},
		{"contrast-enhance", d.decodeContrastEnhanced},
	}

	for _, s := range strategies {
		content, err := s.fn(img)
		if err != nil {
			d.log.Debug().Str("strategy", s.name).Err(err).Msg("QR decode strategy failed")
			continue
		}
		if content != "" {
			d.log.Info().Str("strategy", s.name).Int("payload_length", len(content)).Msg("QR code decoded")
			return content, nil
		}
	}

	d.log.Info().Msg("No QR code found after all strategies")
	return "", nil
}

// decode runs the zxing reader over an image with optional hints.
func (d *Detector) decode(img image.Image, hints map[gozxing.DecodeHintType]interface{}) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}
	result, err := d.reader.Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}

// decodeGrayscale decodes at original size after grayscale conversion.
func (d *Detector) decodeGrayscale(img image.Image) (string, error) {
	return d.decode(toGrayscale(img), nil)
}

// decodeTryHarder decodes the raw pixels with the reader's exhaustive
// search enabled.
func (d *Detector) decodeTryHarder(img image.Image) (string, error) {
	return d.decode(img, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
}

// decodeScaled decodes after rescaling by the given factor.
func (d *Detector) decodeScaled(factor float64) func(image.Image) (string, error) {
	return func(img image.Image) (string, error) {
		bounds := img.Bounds()
		w := int(float64(bounds.Dx()) * factor)
		h := int(float64(bounds.Dy()) * factor)
		if w < 16 || h < 16 {
			return "", fmt.Errorf("image too small to rescale by %.1f", factor)
		}
		scaled := imgconv.Resize(img, &imgconv.ResizeOption{Width: w, Height: h})
		return d.decode(toGrayscale(scaled), nil)
	}
}

// decodeBinarized decodes after grayscale + fixed-threshold binarization.
func (d *Detector) decodeBinarized(img image.Image) (string, error) {
	return d.decode(binarize(toGrayscale(img), binarizationThreshold), nil)
}

// decodeContrastEnhanced decodes after a contrast stretch and a light
// sharpening pass on the grayscale image.
func (d *Detector) decodeContrastEnhanced(img image.Image) (string, error) {
	gray := toGrayscale(img)
	return d.decode(sharpen(stretchContrast(gray)), nil)
}

// toGrayscale converts any image to 8-bit grayscale.
func toGrayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// binarize maps every pixel to pure black or white around the threshold.
func binarize(gray *image.Gray, threshold uint8) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// stretchContrast normalizes the grayscale histogram to the full range.
func stretchContrast(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	minV, maxV := uint8(255), uint8(0)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	if maxV <= minV {
		return gray
	}
	scale := 255.0 / float64(maxV-minV)
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float64(gray.GrayAt(x, y).Y-minV) * scale
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

// sharpen applies a 3x3 sharpening kernel.
func sharpen(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	// kernel: center 5, cross -1
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if x == bounds.Min.X || y == bounds.Min.Y || x == bounds.Max.X-1 || y == bounds.Max.Y-1 {
				out.SetGray(x, y, gray.GrayAt(x, y))
				continue
			}
			v := 5*int(gray.GrayAt(x, y).Y) -
				int(gray.GrayAt(x-1, y).Y) - int(gray.GrayAt(x+1, y).Y) -
				int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x, y+1).Y)
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}
