/**
 * HTTP API for the invoice-points worker
 *
 * Mirrors the service surface the frontend consumes:
 *   POST /process-order        synchronous processing of one invoice
 *   POST /process-order/async  enqueue for the worker pool
 *   GET  /jobs/:id             queue job status
 *   POST /test-ocr             OCR-only debugging path
 *   GET  /health               readiness and catalog/OCR info
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	procerrors "github.com/clubefast/invoice-worker/internal/errors"
	"github.com/clubefast/invoice-worker/internal/processor"
	"github.com/clubefast/invoice-worker/internal/queue"
	"github.com/clubefast/invoice-worker/internal/storage"

	"github.com/google/uuid"
)

// Server exposes the worker over HTTP
type Server struct {
	processor *processor.InvoiceProcessor
	producer  *queue.Producer    // nil disables the async path
	status    *queue.StatusStore // nil disables job status/stats
	http      *http.Server
}

// NewServer creates the HTTP server
func NewServer(addr string, proc *processor.InvoiceProcessor, producer *queue.Producer, status *queue.StatusStore) *Server {
	s := &Server{
		processor: proc,
		producer:  producer,
		status:    status,
	}

	router := gin.Default()
	router.GET("/health", s.health)
	router.POST("/process-order", s.processOrder)
	router.POST("/process-order/async", s.processOrderAsync)
	router.GET("/jobs/:id", s.jobStatus)
	router.POST("/test-ocr", s.testOCR)

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// processRequest is the submission body: a photographed invoice as
// base64 (with or without a data-URL prefix) or pre-recognized text.
type processRequest struct {
	Image  string `json:"image"`
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

func (r *processRequest) empty() bool {
	return strings.TrimSpace(r.Image) == "" && strings.TrimSpace(r.Text) == ""
}

// health reports readiness info: OCR availability, catalog size and
// queue stats. Informational only.
func (s *Server) health(c *gin.Context) {
	payload := gin.H{
		"status":            "ok",
		"service":           "invoice-points-worker",
		"ocr_available":     s.processor.OCRAvailable(),
		"products_database": s.processor.CatalogSize(),
		"timestamp":         time.Now().Format(time.RFC3339),
	}

	if s.status != nil {
		if stats, err := s.status.Stats(c.Request.Context()); err == nil {
			payload["queue"] = stats
		}
	}

	c.JSON(http.StatusOK, payload)
}

// processOrder runs the extraction pipeline synchronously and returns
// the structured result. A total processing failure returns an explicit
// failure envelope with a last-resort default record, so the caller
// always has something displayable.
func (s *Server) processOrder(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no invoice image or text provided",
		})
		return
	}

	jobID := uuid.New().String()

	result, err := s.processor.ProcessInvoice(c.Request.Context(), &processor.ProcessRequest{
		JobID:       jobID,
		UserID:      req.UserID,
		ImageBase64: req.Image,
		Text:        req.Text,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateOrder) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "invoice already processed",
			})
			return
		}

		status := http.StatusInternalServerError
		var procErr *procerrors.ProcessingError
		if errors.As(err, &procErr) && procErr.Code == procerrors.ErrorDecodeFailed {
			status = http.StatusUnprocessableEntity
		}

		c.JSON(status, gin.H{
			"success":       false,
			"error":         err.Error(),
			"fallback_data": fallbackRecord(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"products":             result.Result.Products,
			"allProducts":          result.Result.LineItems,
			"totalPoints":          result.Result.TotalPoints,
			"orderNumber":          result.Result.Metadata.OrderNumber,
			"orderDate":            result.Result.Metadata.IssueDate,
			"totalValue":           result.Result.Metadata.DeclaredTotal,
			"customer":             result.Result.Metadata.Customer,
			"processingMethod":     result.Result.Method,
			"ocrUsed":              result.OCRUsed,
			"processingTimeMs":     result.ProcessingTimeMs,
			"productsDatabaseSize": s.processor.CatalogSize(),
		},
	})
}

// processOrderAsync enqueues the submission for the worker pool
func (s *Server) processOrderAsync(c *gin.Context) {
	if s.producer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "queue not configured",
		})
		return
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no invoice image or text provided",
		})
		return
	}

	jobID, err := s.producer.Enqueue(c.Request.Context(), &queue.JobData{
		UserID:      req.UserID,
		ImageBase64: req.Image,
		Text:        req.Text,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"jobId":   jobID,
	})
}

// jobStatus reports the recorded status of an async job
func (s *Server) jobStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "job status not configured",
		})
		return
	}

	jobID := c.Param("id")
	status, err := s.status.Status(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if status == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "unknown job",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobId":   jobID,
		"status":  status,
	})
}

// testOCR runs recognition and correction only, for debugging uploads
func (s *Server) testOCR(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no invoice image provided",
		})
		return
	}

	text, err := s.processor.RecognizeText(c.Request.Context(), req.Image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"text":          text,
		"length":        len(text),
		"lines":         len(strings.Split(text, "\n")),
		"ocr_available": s.processor.OCRAvailable(),
	})
}

// fallbackRecord is the last-resort default the caller displays when
// processing fails outright
func fallbackRecord() gin.H {
	now := time.Now()
	return gin.H{
		"products":    []interface{}{},
		"allProducts": []interface{}{},
		"totalPoints": 0,
		"orderNumber": fmt.Sprintf("ERROR-%d", now.Unix()),
		"orderDate":   now.Format("2006-01-02"),
		"totalValue":  0,
		"customer":    "",
	}
}
