package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wellora/wellness-api/internal/queue"
	"github.com/wellora/wellness-api/internal/services/assistant"
)

// mockMaintainer is a mock implementation of ConversationMaintainer
type mockMaintainer struct {
	generateTitleFunc  func(ctx context.Context, conversationID uuid.UUID) error
	refreshSummaryFunc func(ctx context.Context, conversationID uuid.UUID) error
	titleCalls         int
	summaryCalls       int
}

func (m *mockMaintainer) GenerateTitle(ctx context.Context, conversationID uuid.UUID) error {
	m.titleCalls++
	if m.generateTitleFunc != nil {
		return m.generateTitleFunc(ctx, conversationID)
	}
	return nil
}

func (m *mockMaintainer) RefreshSummary(ctx context.Context, conversationID uuid.UUID) error {
	m.summaryCalls++
	if m.refreshSummaryFunc != nil {
		return m.refreshSummaryFunc(ctx, conversationID)
	}
	return nil
}

var _ ConversationMaintainer = (*mockMaintainer)(nil)

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockJobQueue records enqueued jobs
type mockJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestMaintenanceWorker_ProcessJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	conversationID := uuid.New()

	tests := []struct {
		name         string
		job          *queue.Job
		maintainer   *mockMaintainer
		expectError  bool
		expectAck    bool
		titleCalls   int
		summaryCalls int
	}{
		{
			name: "title generation job",
			job: &queue.Job{
				ID:             uuid.New(),
				Type:           queue.JobTypeTitleGeneration,
				UserID:         userID,
				ConversationID: &conversationID,
			},
			maintainer: &mockMaintainer{},
			expectAck:  true,
			titleCalls: 1,
		},
		{
			name: "summary refresh job",
			job: &queue.Job{
				ID:             uuid.New(),
				Type:           queue.JobTypeSummaryRefresh,
				UserID:         userID,
				ConversationID: &conversationID,
			},
			maintainer:   &mockMaintainer{},
			expectAck:    true,
			summaryCalls: 1,
		},
		{
			name: "missing conversation id goes through retry path",
			job: &queue.Job{
				ID:         uuid.New(),
				Type:       queue.JobTypeTitleGeneration,
				UserID:     userID,
				MaxRetries: 0,
			},
			maintainer:  &mockMaintainer{},
			expectError: true,
		},
		{
			name: "unknown job type",
			job: &queue.Job{
				ID:             uuid.New(),
				Type:           queue.JobType("unknown"),
				UserID:         userID,
				ConversationID: &conversationID,
			},
			maintainer:  &mockMaintainer{},
			expectError: true,
		},
		{
			name: "job not ready yet",
			job: &queue.Job{
				ID:             uuid.New(),
				Type:           queue.JobTypeTitleGeneration,
				UserID:         userID,
				ConversationID: &conversationID,
				NotBefore:      timePtr(time.Now().Add(1 * time.Hour)),
			},
			maintainer: &mockMaintainer{},
			expectAck:  true,
			titleCalls: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			worker := NewMaintenanceWorker(tt.maintainer, &mockJobQueue{})
			msg := &mockMessage{job: tt.job}

			err := worker.ProcessJob(context.Background(), msg)

			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.expectAck && !msg.acked {
				t.Error("Expected message to be acked")
			}
			if tt.maintainer.titleCalls != tt.titleCalls {
				t.Errorf("GenerateTitle called %d times, want %d", tt.maintainer.titleCalls, tt.titleCalls)
			}
			if tt.maintainer.summaryCalls != tt.summaryCalls {
				t.Errorf("RefreshSummary called %d times, want %d", tt.maintainer.summaryCalls, tt.summaryCalls)
			}
		})
	}
}

func TestMaintenanceWorker_RetryableErrorReEnqueues(t *testing.T) {
	t.Parallel()

	conversationID := uuid.New()
	jobQueue := &mockJobQueue{}
	maintainer := &mockMaintainer{
		generateTitleFunc: func(ctx context.Context, id uuid.UUID) error {
			return &assistant.ProviderError{
				Kind:       assistant.ErrorKindRateLimit,
				StatusCode: 429,
				Message:    "rate limit exceeded",
			}
		},
	}

	worker := NewMaintenanceWorker(maintainer, jobQueue)
	job := queue.NewJob(queue.JobTypeTitleGeneration, uuid.New(), &conversationID)
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err != nil {
		t.Fatalf("re-enqueue path should swallow the error, got %v", err)
	}
	if !msg.acked {
		t.Error("original message should be acked before re-enqueue")
	}
	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("expected 1 re-enqueued job, got %d", len(jobQueue.enqueued))
	}

	retried := jobQueue.enqueued[0]
	if retried.RetryCount != job.RetryCount+1 {
		t.Errorf("retry count = %d, want %d", retried.RetryCount, job.RetryCount+1)
	}
	if retried.NotBefore == nil || !retried.NotBefore.After(time.Now()) {
		t.Error("re-enqueued job should carry a future NotBefore")
	}
	if retried.ConversationID == nil || *retried.ConversationID != conversationID {
		t.Error("re-enqueued job should keep the conversation id")
	}
}

func TestMaintenanceWorker_FatalErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	conversationID := uuid.New()
	maintainer := &mockMaintainer{
		refreshSummaryFunc: func(ctx context.Context, id uuid.UUID) error {
			return errors.New("conversation is gone")
		},
	}

	worker := NewMaintenanceWorker(maintainer, &mockJobQueue{})
	job := queue.NewJob(queue.JobTypeSummaryRefresh, uuid.New(), &conversationID)
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !msg.nacked || msg.requeue {
		t.Error("exhausted job should be nacked without requeue (DLQ)")
	}
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	rateLimited := &assistant.ProviderError{Kind: assistant.ErrorKindRateLimit}
	transient := &assistant.ProviderError{Kind: assistant.ErrorKindTransient}

	if got := retryBackoff(transient, 0); got != 30*time.Second {
		t.Errorf("transient first retry = %v, want 30s", got)
	}
	if got := retryBackoff(rateLimited, 0); got != 2*time.Minute {
		t.Errorf("rate limit first retry = %v, want 2m", got)
	}
	if got := retryBackoff(rateLimited, 10); got != 30*time.Minute {
		t.Errorf("backoff should cap at 30m, got %v", got)
	}
}
