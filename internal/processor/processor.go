/**
 * Invoice processor
 *
 * Worker-facing orchestrator around the extraction pipeline: decodes the
 * submitted image, obtains OCR text, corrects it, assembles the
 * structured result and persists it. The pipeline stages themselves are
 * pure and share nothing but the read-only catalog, so any number of
 * jobs can run through one processor concurrently.
 */

package processor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/clubefast/invoice-worker/internal/catalog"
	"github.com/clubefast/invoice-worker/internal/errors"
	"github.com/clubefast/invoice-worker/internal/invoice"
	"github.com/clubefast/invoice-worker/internal/logging"
	"github.com/clubefast/invoice-worker/internal/match"
	"github.com/clubefast/invoice-worker/internal/ocr"
	"github.com/clubefast/invoice-worker/internal/storage"
	"github.com/clubefast/invoice-worker/internal/textproc"
)

// InvoiceProcessorInterface defines the interface the queue and HTTP
// layers consume
type InvoiceProcessorInterface interface {
	ProcessInvoice(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID, userID, status string, progress int, metadata map[string]interface{}) error
}

// ResultStore persists job status and processing results. Satisfied by
// storage.PostgresClient; nil disables persistence (tests, dry runs).
type ResultStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	SaveResult(ctx context.Context, jobID, userID string, result *invoice.Result) error
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Catalog     *catalog.Catalog
	Weights     match.Weights
	Corrections []textproc.Replacement
	Recognizer  ocr.TextRecognizer // nil disables the image path
	Store       ResultStore        // nil disables persistence
}

// ProcessRequest represents one invoice submission. Either Text (already
// recognized) or ImageBase64 (a photographed invoice, with or without a
// data-URL prefix) must be present.
type ProcessRequest struct {
	JobID       string
	UserID      string
	ImageBase64 string
	Text        string
	Metadata    map[string]interface{}
}

// ProcessResult wraps the structured invoice result with processing
// telemetry
type ProcessResult struct {
	Result           *invoice.Result
	OCRUsed          bool
	OCRDurationMs    int64
	ProcessingTimeMs int64
}

// InvoiceProcessor runs the extraction pipeline for the worker
type InvoiceProcessor struct {
	catalog    *catalog.Catalog
	corrector  *textproc.Corrector
	assembler  *invoice.Assembler
	recognizer ocr.TextRecognizer
	store      ResultStore
	log        *logging.Logger
}

// NewInvoiceProcessor creates a new invoice processor
func NewInvoiceProcessor(cfg *ProcessorConfig) (*InvoiceProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Catalog == nil || cfg.Catalog.Len() == 0 {
		return nil, fmt.Errorf("a non-empty product catalog is required")
	}

	matcher := match.NewMatcher(cfg.Catalog, cfg.Weights)

	return &InvoiceProcessor{
		catalog:    cfg.Catalog,
		corrector:  textproc.NewCorrector(cfg.Corrections),
		assembler:  invoice.NewAssembler(matcher),
		recognizer: cfg.Recognizer,
		store:      cfg.Store,
		log:        logging.NewLogger("processor"),
	}, nil
}

// CatalogSize returns the number of loaded catalog entries (health info)
func (p *InvoiceProcessor) CatalogSize() int {
	return p.catalog.Len()
}

// OCRAvailable reports whether the recognizer is usable (health info)
func (p *InvoiceProcessor) OCRAvailable() bool {
	return p.recognizer != nil && p.recognizer.Available()
}

// ProcessInvoice runs the full pipeline for one submission. Per-line and
// per-field extraction failures degrade to fallbacks inside the
// pipeline; only the total absence of readable text is an error.
func (p *InvoiceProcessor) ProcessInvoice(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	startTime := time.Now()

	out := &ProcessResult{}

	text := req.Text
	if strings.TrimSpace(text) == "" && req.ImageBase64 != "" {
		recognized, duration, err := p.recognizeImage(ctx, req.ImageBase64)
		if err != nil {
			return nil, errors.NewOCRFailedError(req.JobID, err)
		}
		text = recognized
		out.OCRUsed = true
		out.OCRDurationMs = duration.Milliseconds()
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.NewDecodeFailedError(req.JobID, nil)
	}

	corrected := p.corrector.Correct(text)

	result, err := p.assembler.Assemble(corrected)
	if err != nil {
		return nil, errors.NewDecodeFailedError(req.JobID, err)
	}

	p.log.Info("invoice processed",
		"jobId", req.JobID,
		"order", result.Metadata.OrderNumber,
		"eligible", len(result.Products),
		"points", result.TotalPoints)

	if p.store != nil {
		if err := p.store.SaveResult(ctx, req.JobID, req.UserID, result); err != nil {
			if err == storage.ErrDuplicateOrder {
				return nil, err
			}
			return nil, errors.NewStorageFailedError(req.JobID, err)
		}
	}

	out.Result = result
	out.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	return out, nil
}

// RecognizeText is the OCR-only path (test endpoint): decode, recognize,
// correct, no matching or persistence.
func (p *InvoiceProcessor) RecognizeText(ctx context.Context, imageBase64 string) (string, error) {
	text, _, err := p.recognizeImage(ctx, imageBase64)
	if err != nil {
		return "", err
	}
	return p.corrector.Correct(text), nil
}

// UpdateJobStatus records job progress when persistence is configured
func (p *InvoiceProcessor) UpdateJobStatus(ctx context.Context, jobID, userID, status string, progress int, metadata map[string]interface{}) error {
	if p.store == nil {
		return nil
	}
	return p.store.UpdateJobStatus(ctx, &storage.JobUpdate{
		JobID:    jobID,
		UserID:   userID,
		Status:   status,
		Progress: progress,
		Metadata: metadata,
	})
}

// recognizeImage decodes the base64 payload (tolerating a data-URL
// prefix) and runs it through the recognizer
func (p *InvoiceProcessor) recognizeImage(ctx context.Context, imageBase64 string) (string, time.Duration, error) {
	if p.recognizer == nil {
		return "", 0, fmt.Errorf("no OCR recognizer configured")
	}

	payload := imageBase64
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	imageData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode image payload: %w", err)
	}

	recognized, err := p.recognizer.Recognize(ctx, imageData)
	if err != nil {
		return "", 0, err
	}

	return recognized.Text, recognized.Duration, nil
}
