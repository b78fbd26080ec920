/**
 * PostgreSQL client for the invoice-points worker
 *
 * Persists job status, processed-invoice records and the points ledger.
 * The extraction pipeline itself is storage-free; only the worker layer
 * touches the database.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/clubefast/invoice-worker/internal/invoice"
)

// ErrDuplicateOrder is returned when an invoice with the same order
// number was already processed. Duplicate submissions must not award
// points twice.
var ErrDuplicateOrder = errors.New("invoice already processed")

// uniqueViolation is the PostgreSQL error code for unique constraint hits
const uniqueViolation = "23505"

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID    string
	UserID   string
	Status   string
	Progress int
	Metadata map[string]interface{}
}

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pool sizing for a queue-fed worker
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// Ping checks database connectivity
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection pool
func (c *PostgresClient) Close() error {
	return c.db.Close()
}

// UpdateJobStatus upserts a processing job record. Idempotent: the first
// update for a job creates the row.
func (c *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update == nil || update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	query := `
		INSERT INTO invoice_points.processing_jobs (
			job_id, user_id, status, progress, metadata, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	if _, err := c.db.ExecContext(ctx, query,
		update.JobID, update.UserID, update.Status, update.Progress, metadataJSON); err != nil {
		return fmt.Errorf("failed to update job %s: %w", update.JobID, err)
	}

	return nil
}

// SaveResult stores the processed invoice and writes the points-ledger
// entry for the user in one transaction. Returns ErrDuplicateOrder when
// the order number was seen before.
func (c *PostgresClient) SaveResult(ctx context.Context, jobID, userID string, result *invoice.Result) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertInvoice := `
		INSERT INTO invoice_points.processed_invoices (
			job_id, user_id, order_number, order_date, customer,
			declared_total, total_points, processing_method, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	if _, err := tx.ExecContext(ctx, insertInvoice,
		jobID, userID,
		result.Metadata.OrderNumber,
		result.Metadata.IssueDate,
		result.Metadata.Customer,
		result.Metadata.DeclaredTotal,
		result.TotalPoints,
		result.Method,
		resultJSON,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to store processed invoice: %w", err)
	}

	if result.TotalPoints > 0 {
		insertLedger := `
			INSERT INTO invoice_points.points_ledger (
				user_id, order_number, points, created_at
			) VALUES ($1, $2, $3, NOW())`

		if _, err := tx.ExecContext(ctx, insertLedger,
			userID, result.Metadata.OrderNumber, result.TotalPoints); err != nil {
			return fmt.Errorf("failed to write points ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}

	return nil
}

// UserPoints returns the accumulated ledger balance for a user
func (c *PostgresClient) UserPoints(ctx context.Context, userID string) (int64, error) {
	var total sql.NullInt64
	query := `SELECT SUM(points) FROM invoice_points.points_ledger WHERE user_id = $1`
	if err := c.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read points balance: %w", err)
	}
	return total.Int64, nil
}
