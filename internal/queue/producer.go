package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Producer enqueues invoice processing jobs
type Producer struct {
	client    *asynq.Client
	queueName string
}

// NewProducer creates a task producer on the given queue
func NewProducer(redisURL, queueName string) (*Producer, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Producer{
		client:    asynq.NewClient(redisOpt),
		queueName: queueName,
	}, nil
}

// Close closes the underlying client
func (p *Producer) Close() error {
	return p.client.Close()
}

// Enqueue submits an invoice processing job. A missing job ID is
// assigned here so callers always get one back.
func (p *Producer) Enqueue(ctx context.Context, job *JobData) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	task := asynq.NewTask(TaskProcessInvoice, payload)
	if _, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.queueName),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.JobID, nil
}
