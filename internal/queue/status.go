/**
 * Redis job status store
 *
 * Mirrors job status into Redis for realtime consumers: per-job status
 * hash, status sets for quick stats, and a pub/sub channel carrying
 * job:<status> events that the frontend streams over WebSocket.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusStore publishes job status to Redis
type StatusStore struct {
	client    *redis.Client
	queueName string
}

// NewStatusStore connects to Redis and verifies the connection
func NewStatusStore(redisURL, queueName string) (*StatusStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if queueName == "" {
		queueName = TaskProcessInvoice
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StatusStore{client: client, queueName: queueName}, nil
}

// Close closes the Redis connection
func (s *StatusStore) Close() error {
	return s.client.Close()
}

// Ping checks Redis connectivity
func (s *StatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Publish records the job's status and emits a job:<status> event.
// Best-effort: errors are logged, never propagated to the job handler.
func (s *StatusStore) Publish(ctx context.Context, jobID, status string, details map[string]interface{}) {
	statusKey := fmt.Sprintf("%s:status", s.queueName)
	if err := s.client.HSet(ctx, statusKey, jobID, status).Err(); err != nil {
		log.Printf("Warning: failed to record status for job %s: %v", jobID, err)
	}

	for _, st := range []string{"processing", "completed", "failed"} {
		setKey := fmt.Sprintf("%s:%s", s.queueName, st)
		if st == status {
			s.client.SAdd(ctx, setKey, jobID)
		} else {
			s.client.SRem(ctx, setKey, jobID)
		}
	}

	if details != nil && status != "processing" {
		data, err := json.Marshal(details)
		if err == nil {
			resultKey := fmt.Sprintf("%s:results", s.queueName)
			s.client.HSet(ctx, resultKey, jobID, data)
		}
	}

	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	eventData, err := json.Marshal(event)
	if err == nil {
		s.client.Publish(ctx, fmt.Sprintf("%s:events", s.queueName), eventData)
	}
}

// Status returns the recorded status of a job, empty when unknown
func (s *StatusStore) Status(ctx context.Context, jobID string) (string, error) {
	statusKey := fmt.Sprintf("%s:status", s.queueName)
	status, err := s.client.HGet(ctx, statusKey, jobID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return status, err
}

// Stats returns how many jobs are in each state
func (s *StatusStore) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, st := range []string{"processing", "completed", "failed"} {
		n, err := s.client.SCard(ctx, fmt.Sprintf("%s:%s", s.queueName, st)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read queue stats: %w", err)
		}
		stats[st] = n
	}
	return stats, nil
}
