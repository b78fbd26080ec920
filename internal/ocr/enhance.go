package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// EnhanceForOCR prepares a photographed invoice for recognition:
// grayscale for contrast, aggressive contrast boost, sharpening,
// brightness lift and gamma correction, re-encoded as PNG.
func EnhanceForOCR(imageData []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
	}

	return buf.Bytes(), nil
}
