package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
	"go.uber.org/zap"
)

// titleHistoryLimit is how many turns the title pass may look at.
const titleHistoryLimit = 6

// GenerateTitle asks the model for a short title based on the opening
// exchange and stores it on the conversation. Intended for background use;
// the provisional first-message title remains if the call fails.
func (o *Orchestrator) GenerateTitle(ctx context.Context, conversationID uuid.UUID) error {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("load conversation: %w", err)
	}

	history, err := o.recentChronological(ctx, conversationID, titleHistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	var transcript strings.Builder
	for _, msg := range history {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, TruncateString(msg.Content, 300))
	}

	turns := []ChatTurn{
		{Role: TurnRoleSystem, Content: "Write a title of at most six words for the conversation below. Reply with the title only, no quotes."},
		{Role: TurnRoleUser, Content: transcript.String()},
	}
	completion, err := o.provider.Complete(ctx, CompletionRequest{Turns: turns, MaxTokens: 30})
	if err != nil {
		return fmt.Errorf("title completion: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(completion.Content), `"`)
	if title == "" {
		return nil
	}
	conv.Title = TruncateString(title, MaxTitleLength)
	if err := o.conversations.Update(ctx, conv); err != nil {
		return fmt.Errorf("save title: %w", err)
	}
	if o.logger != nil {
		o.logger.Info("conversation_titled",
			zap.String("conversation_id", conversationID.String()),
			zap.String("title", conv.Title),
		)
	}
	return nil
}

// summaryConsolidateAfter is how many accreted segments trigger a rewrite.
const summaryConsolidateAfter = 5

// RefreshSummary consolidates accreted summary segments into one compact
// segment via a model call. In-band compression stays deterministic; this
// background pass only keeps long-lived summaries from growing unbounded.
func (o *Orchestrator) RefreshSummary(ctx context.Context, conversationID uuid.UUID) error {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("load conversation: %w", err)
	}
	if len(conv.SummarySegments) < summaryConsolidateAfter {
		return nil
	}

	turns := []ChatTurn{
		{Role: TurnRoleSystem, Content: "Rewrite the conversation summary fragments below into one compact summary of at most three sentences. Preserve every topic, metric, and recipe mentioned."},
		{Role: TurnRoleUser, Content: conv.ContextSummary()},
	}
	completion, err := o.provider.Complete(ctx, CompletionRequest{Turns: turns, MaxTokens: 200})
	if err != nil {
		return fmt.Errorf("summary completion: %w", err)
	}

	consolidated := strings.TrimSpace(completion.Content)
	if consolidated == "" {
		return nil
	}
	conv.SummarySegments = []string{consolidated}
	if err := o.conversations.Update(ctx, conv); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if o.logger != nil {
		o.logger.Info("summary_consolidated",
			zap.String("conversation_id", conversationID.String()),
		)
	}
	return nil
}
