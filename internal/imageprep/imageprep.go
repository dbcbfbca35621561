// Package imageprep enhances scanned invoice images before OCR.
package imageprep

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// EnhanceForOCR applies a series of adjustments that make printed invoice text
// easier for the vision model to read: grayscale, contrast, sharpening, and a
// mild brightness/gamma lift. Returns the processed image re-encoded as JPEG.
func EnhanceForOCR(image []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}
