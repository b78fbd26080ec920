/**
 * Invoice-points worker
 *
 * Turns photographed Brazilian invoices into structured records with
 * loyalty points. Consumes jobs from a Redis-backed queue, exposes a
 * synchronous HTTP API for direct submissions, and persists results to
 * PostgreSQL when a database is configured.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clubefast/invoice-worker/internal/catalog"
	"github.com/clubefast/invoice-worker/internal/config"
	"github.com/clubefast/invoice-worker/internal/ocr"
	"github.com/clubefast/invoice-worker/internal/processor"
	"github.com/clubefast/invoice-worker/internal/queue"
	"github.com/clubefast/invoice-worker/internal/server"
	"github.com/clubefast/invoice-worker/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting invoice-points worker...")
	log.Printf("Configuration: queue=%s, concurrency=%d, timeout=%dms",
		cfg.QueueName, cfg.WorkerConcurrency, cfg.ProcessingTimeout)

	products := catalog.Default()
	if cfg.CatalogPath != "" {
		products, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load product catalog from %s: %v", cfg.CatalogPath, err)
		}
	}
	log.Printf("Product catalog loaded: %d products", products.Len())

	var store processor.ResultStore
	var pgClient *storage.PostgresClient
	if cfg.DatabaseURL != "" {
		pgClient, err = storage.NewPostgresClient(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pgClient.Close()
		store = pgClient
		log.Println("PostgreSQL persistence enabled")
	} else {
		log.Println("DATABASE_URL not set, persistence disabled")
	}

	recognizer := ocr.NewTesseract(&ocr.TesseractConfig{
		Languages: cfg.OCRLanguages,
		Enhance:   cfg.OCREnhance,
	})
	if recognizer.Available() {
		log.Printf("Tesseract OCR available (languages=%v)", cfg.OCRLanguages)
	} else {
		log.Println("Warning: Tesseract OCR not available, image jobs will fail")
	}

	proc, err := processor.NewInvoiceProcessor(&processor.ProcessorConfig{
		Catalog:    products,
		Weights:    cfg.Weights,
		Recognizer: recognizer,
		Store:      store,
	})
	if err != nil {
		log.Fatalf("Failed to create invoice processor: %v", err)
	}

	status, err := queue.NewStatusStore(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer status.Close()

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		Status:            status,
		ProcessingTimeout: time.Duration(cfg.ProcessingTimeout) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("Failed to create queue consumer: %v", err)
	}

	producer, err := queue.NewProducer(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		log.Fatalf("Failed to create queue producer: %v", err)
	}
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	api := server.NewServer(cfg.HTTPAddr, proc, producer, status)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := api.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Printf("Queue consumer shutdown error: %v", err)
	}

	log.Println("Worker shut down")
}
