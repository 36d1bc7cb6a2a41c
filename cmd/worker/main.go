package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wellora/wellness-api/internal/config"
	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/logger"
	"github.com/wellora/wellness-api/internal/queue"
	"github.com/wellora/wellness-api/internal/services/assistant"
	"github.com/wellora/wellness-api/internal/workers"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	// Initialize repositories
	conversationRepo := database.NewConversationRepository(db)
	messageRepo := database.NewMessageRepository(db)
	preferenceRepo := database.NewPreferenceRepository(db)
	wellnessRepo := database.NewWellnessRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Create model provider with logger
	if cfg.OpenAIKey == "" {
		zapLogger.Fatal("OpenAI API key not configured")
	}
	provider := assistant.NewOpenAIProvider(
		cfg.OpenAIKey,
		cfg.AIBaseURL,
		cfg.AIModel,
		zapLogger,
		debugMode,
	)

	zapLogger.Info("Initialized model provider",
		zap.String("model", cfg.AIModel),
	)

	// The worker drives title generation and summary refresh through the
	// same orchestrator the server uses.
	dispatcher := assistant.NewDispatcher(wellnessRepo, zapLogger)
	prefetcher := assistant.NewPrefetcher(dispatcher, wellnessRepo, zapLogger)
	prompts := assistant.NewPromptRenderer(wellnessRepo)
	compressor := assistant.NewCompressor(conversationRepo, messageRepo, zapLogger)
	orchestrator := assistant.NewOrchestrator(
		conversationRepo,
		messageRepo,
		preferenceRepo,
		dispatcher,
		prefetcher,
		prompts,
		compressor,
		provider,
		zapLogger,
	)

	worker := workers.NewMaintenanceWorker(orchestrator, jobQueue)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				// Process job
				if err := worker.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("Worker stopped")
}
