/**
 * Tesseract OCR boundary
 *
 * The extraction pipeline consumes text, never image bytes; this package
 * is the collaborator that turns a photographed invoice into that text.
 * Recognition is Tesseract (por+eng) with a character whitelist tuned for
 * Brazilian invoices. Availability is informational only and reported by
 * the health endpoint.
 */

package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Recognition character set: digits, Latin letters with Portuguese
// accents, and the punctuation that appears on fiscal documents.
const charWhitelist = `0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz` +
	`ÀÁÂÃÄÇÈÉÊËÌÍÎÏÑÒÓÔÕÖÙÚÛÜÝàáâãäçèéêëìíîïñòóôõöùúûüý` +
	`.,/:;-+*()[]{}|\@#$%&<>="' º°ª`

// TextRecognizer converts invoice image bytes into raw text
type TextRecognizer interface {
	Recognize(ctx context.Context, imageData []byte) (*RecognitionResult, error)
	Available() bool
}

// RecognitionResult is the raw OCR output before correction
type RecognitionResult struct {
	Text     string
	Duration time.Duration
}

// TesseractConfig holds recognizer configuration
type TesseractConfig struct {
	Languages []string
	Enhance   bool // run photo enhancement before recognition
}

// Tesseract recognizes text using a local Tesseract installation
type Tesseract struct {
	languages []string
	enhance   bool
}

// NewTesseract creates a Tesseract-backed recognizer
func NewTesseract(cfg *TesseractConfig) *Tesseract {
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"por", "eng"}
	}
	return &Tesseract{languages: languages, enhance: cfg.Enhance}
}

// Recognize performs OCR on the image bytes. The image is optionally
// enhanced first (photographed invoices are low-contrast and noisy);
// enhancement failures fall back to the original bytes rather than
// failing recognition.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte) (*RecognitionResult, error) {
	startTime := time.Now()

	if len(imageData) == 0 {
		return nil, fmt.Errorf("no image data")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.enhance {
		if enhanced, err := EnhanceForOCR(imageData); err == nil {
			imageData = enhanced
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetWhitelist(charWhitelist); err != nil {
		return nil, fmt.Errorf("failed to set OCR whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return &RecognitionResult{
		Text:     text,
		Duration: time.Since(startTime),
	}, nil
}

// Available reports whether a usable Tesseract installation is present
func (t *Tesseract) Available() bool {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version() != ""
}
