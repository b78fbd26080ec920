/**
 * Consumer tests
 *
 * Drives the task handler directly with a fake processor; no Redis
 * connection is made because the asynq server only connects on Run.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clubefast/invoice-worker/internal/invoice"
	"github.com/clubefast/invoice-worker/internal/processor"
)

type fakeProcessor struct {
	result   *processor.ProcessResult
	err      error
	statuses []string
}

func (f *fakeProcessor) ProcessInvoice(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeProcessor) UpdateJobStatus(ctx context.Context, jobID, userID, status string, progress int, metadata map[string]interface{}) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func newTestConsumer(t *testing.T, proc processor.InvoiceProcessorInterface) *Consumer {
	t.Helper()
	c, err := NewConsumer(&ConsumerConfig{
		RedisURL:          "redis://localhost:6379",
		QueueName:         "invoices-test",
		Concurrency:       1,
		Processor:         proc,
		ProcessingTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}
	return c
}

func newTask(t *testing.T, job *JobData) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("failed to marshal job: %v", err)
	}
	return asynq.NewTask(TaskProcessInvoice, payload)
}

func TestHandleProcessInvoiceSuccess(t *testing.T) {
	proc := &fakeProcessor{
		result: &processor.ProcessResult{
			Result: &invoice.Result{
				Metadata:    invoice.Metadata{OrderNumber: "NF-000123456"},
				Products:    []invoice.Product{{Name: "Placa RU", Points: 650}},
				TotalPoints: 650,
				Method:      invoice.MethodExtraction,
			},
		},
	}
	c := newTestConsumer(t, proc)

	task := newTask(t, &JobData{JobID: "job-1", UserID: "user-1", Text: "PLACA RU"})
	if err := c.handleProcessInvoice(context.Background(), task); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if len(proc.statuses) != 2 || proc.statuses[0] != "processing" || proc.statuses[1] != "completed" {
		t.Errorf("status transitions = %v, want [processing completed]", proc.statuses)
	}
}

func TestHandleProcessInvoiceFailure(t *testing.T) {
	proc := &fakeProcessor{err: fmt.Errorf("no readable text")}
	c := newTestConsumer(t, proc)

	task := newTask(t, &JobData{JobID: "job-2", UserID: "user-1"})
	if err := c.handleProcessInvoice(context.Background(), task); err == nil {
		t.Fatal("handler succeeded, want failure")
	}

	if len(proc.statuses) != 2 || proc.statuses[0] != "processing" || proc.statuses[1] != "failed" {
		t.Errorf("status transitions = %v, want [processing failed]", proc.statuses)
	}
}

func TestHandleProcessInvoiceBadPayload(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc)

	task := asynq.NewTask(TaskProcessInvoice, []byte("not json"))
	if err := c.handleProcessInvoice(context.Background(), task); err == nil {
		t.Fatal("handler accepted an unreadable payload")
	}
	if len(proc.statuses) != 0 {
		t.Errorf("status updates recorded for an unreadable payload: %v", proc.statuses)
	}
}

func TestNewConsumerValidation(t *testing.T) {
	base := func() *ConsumerConfig {
		return &ConsumerConfig{
			RedisURL:  "redis://localhost:6379",
			QueueName: "invoices-test",
			Processor: &fakeProcessor{},
		}
	}

	cfg := base()
	cfg.RedisURL = ""
	if _, err := NewConsumer(cfg); err == nil {
		t.Error("NewConsumer accepted an empty Redis URL")
	}

	cfg = base()
	cfg.QueueName = ""
	if _, err := NewConsumer(cfg); err == nil {
		t.Error("NewConsumer accepted an empty queue name")
	}

	cfg = base()
	cfg.Processor = nil
	if _, err := NewConsumer(cfg); err == nil {
		t.Error("NewConsumer accepted a nil processor")
	}
}
