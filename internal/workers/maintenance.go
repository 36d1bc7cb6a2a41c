package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/wellora/wellness-api/internal/queue"
	"github.com/wellora/wellness-api/internal/services/assistant"
)

// ConversationMaintainer is the subset of the orchestrator the worker needs.
type ConversationMaintainer interface {
	GenerateTitle(ctx context.Context, conversationID uuid.UUID) error
	RefreshSummary(ctx context.Context, conversationID uuid.UUID) error
}

// MaintenanceWorker processes conversation maintenance jobs
type MaintenanceWorker struct {
	maintainer ConversationMaintainer
	jobQueue   queue.JobQueue // For re-enqueueing jobs with delays
}

// NewMaintenanceWorker creates a new maintenance worker
func NewMaintenanceWorker(maintainer ConversationMaintainer, jobQueue queue.JobQueue) *MaintenanceWorker {
	return &MaintenanceWorker{
		maintainer: maintainer,
		jobQueue:   jobQueue,
	}
}

// ProcessTitleGenerationJob generates a title for a conversation
func (w *MaintenanceWorker) ProcessTitleGenerationJob(ctx context.Context, job *queue.Job) error {
	if job.ConversationID == nil {
		return fmt.Errorf("conversation_id is required for title generation job")
	}

	if err := w.maintainer.GenerateTitle(ctx, *job.ConversationID); err != nil {
		return fmt.Errorf("failed to generate title: %w", err)
	}

	log.Printf("Generated title for conversation %s", job.ConversationID)
	return nil
}

// ProcessSummaryRefreshJob consolidates a conversation's summary segments
func (w *MaintenanceWorker) ProcessSummaryRefreshJob(ctx context.Context, job *queue.Job) error {
	if job.ConversationID == nil {
		return fmt.Errorf("conversation_id is required for summary refresh job")
	}

	if err := w.maintainer.RefreshSummary(ctx, *job.ConversationID); err != nil {
		return fmt.Errorf("failed to refresh summary: %w", err)
	}

	log.Printf("Refreshed summary for conversation %s", job.ConversationID)
	return nil
}

// ProcessJob processes a job based on its type
func (w *MaintenanceWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeTitleGeneration:
		if err := w.ProcessTitleGenerationJob(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err, "title generation")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeSummaryRefresh:
		if err := w.ProcessSummaryRefreshJob(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err, "summary refresh")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing with retry logic
func (w *MaintenanceWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	// Retryable provider errors (rate limits, transient outages) are
	// re-enqueued through the delayed exchange rather than hammered.
	if provErr, ok := assistant.AsProviderError(err); ok && provErr.Retryable() {
		if job.CanRetry() && w.jobQueue != nil {
			retryDelay := retryBackoff(provErr, job.RetryCount)
			notBefore := time.Now().Add(retryDelay)

			delayedJob := &queue.Job{
				ID:             job.ID,
				Type:           job.Type,
				UserID:         job.UserID,
				ConversationID: job.ConversationID,
				NotBefore:      &notBefore,
				NotAfter:       job.NotAfter,
				Metadata:       job.Metadata,
				CreatedAt:      job.CreatedAt,
				RetryCount:     job.RetryCount + 1,
				MaxRetries:     job.MaxRetries,
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
			}

			if enqueueErr := w.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue %s job %s with delay: %v", jobType, job.ID, enqueueErr)
				return fmt.Errorf("retryable error, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Re-enqueued %s job %s for retry at %v (delay: %v)",
				jobType, job.ID, notBefore, retryDelay)
			return nil
		}

		// Fallback: nack with requeue for immediate retry
		if job.CanRetry() {
			job.IncrementRetry()
			log.Printf("%s job %s will retry immediately (attempt %d/%d)",
				jobType, job.ID, job.RetryCount, job.MaxRetries)
			if nackErr := msg.Nack(true); nackErr != nil {
				log.Printf("Failed to nack job: %v", nackErr)
			}
			return fmt.Errorf("retryable error (will retry): %w", err)
		}
	}

	// For other errors, use standard retry logic
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryBackoff picks a delay based on the error kind and attempt number.
func retryBackoff(provErr *assistant.ProviderError, retryCount int) time.Duration {
	base := 30 * time.Second
	if provErr.Kind == assistant.ErrorKindRateLimit {
		base = 2 * time.Minute
	}
	delay := base * time.Duration(1<<uint(retryCount))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	return delay
}
