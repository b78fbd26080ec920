/**
 * Queue consumer for the invoice-points worker
 *
 * Consumes invoice-processing jobs from a Redis-backed Asynq queue. Each
 * job carries a photographed invoice (base64) or pre-recognized text;
 * the handler runs the extraction pipeline under a per-job timeout and
 * reports status transitions to Redis and PostgreSQL.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clubefast/invoice-worker/internal/errors"
	"github.com/clubefast/invoice-worker/internal/processor"
)

// TaskProcessInvoice is the task type for invoice processing jobs
const TaskProcessInvoice = "invoice:process"

// JobData is the payload of an invoice processing task
type JobData struct {
	JobID       string                 `json:"jobId"`
	UserID      string                 `json:"userId"`
	ImageBase64 string                 `json:"image,omitempty"`
	Text        string                 `json:"text,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.InvoiceProcessorInterface
	status    *StatusStore
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.InvoiceProcessorInterface
	Status            *StatusStore // optional realtime status/eventing
	ProcessingTimeout time.Duration
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at a minute
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		status:    cfg.Status,
		config:    cfg,
	}

	mux.HandleFunc(TaskProcessInvoice, consumer.handleProcessInvoice)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	log.Printf("Stopping queue consumer...")
	c.server.Shutdown()
	log.Printf("Queue consumer stopped")
	return nil
}

// handleProcessInvoice processes one invoice job
func (c *Consumer) handleProcessInvoice(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	log.Printf("[Job %s] Processing invoice for user=%s", job.JobID, job.UserID)

	c.reportStatus(ctx, &job, "processing", 0, nil)

	timeout := c.config.ProcessingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.processor.ProcessInvoice(processCtx, &processor.ProcessRequest{
		JobID:       job.JobID,
		UserID:      job.UserID,
		ImageBase64: job.ImageBase64,
		Text:        job.Text,
		Metadata:    job.Metadata,
	})

	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded {
			log.Printf("[Job %s] Processing timed out after %v", job.JobID, duration)
			timeoutErr := errors.NewProcessingTimeoutError(job.JobID, timeout, err)
			c.reportStatus(ctx, &job, "failed", 100, timeoutErr.ToMap())
			return fmt.Errorf("processing timeout: %w", timeoutErr)
		}

		log.Printf("[Job %s] Processing failed after %v: %v", job.JobID, duration, err)
		c.reportStatus(ctx, &job, "failed", 100, map[string]interface{}{
			"error":          err.Error(),
			"processingTime": duration.Milliseconds(),
		})
		return fmt.Errorf("invoice processing failed: %w", err)
	}

	log.Printf("[Job %s] Completed in %v: order=%s, eligible=%d, points=%d",
		job.JobID, duration,
		result.Result.Metadata.OrderNumber,
		len(result.Result.Products),
		result.Result.TotalPoints)

	c.reportStatus(ctx, &job, "completed", 100, map[string]interface{}{
		"orderNumber":    result.Result.Metadata.OrderNumber,
		"totalPoints":    result.Result.TotalPoints,
		"eligibleCount":  len(result.Result.Products),
		"method":         result.Result.Method,
		"ocrUsed":        result.OCRUsed,
		"processingTime": duration.Milliseconds(),
	})

	return nil
}

// reportStatus updates PostgreSQL (via the processor) and Redis (via the
// status store). Status reporting is best-effort: a failed update never
// fails the job.
func (c *Consumer) reportStatus(ctx context.Context, job *JobData, status string, progress int, metadata map[string]interface{}) {
	if err := c.processor.UpdateJobStatus(ctx, job.JobID, job.UserID, status, progress, metadata); err != nil {
		log.Printf("[Job %s] Warning: failed to update job status to %s: %v", job.JobID, status, err)
	}
	if c.status != nil {
		c.status.Publish(ctx, job.JobID, status, metadata)
	}
}
