package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
	"go.uber.org/zap"
)

// Compressor folds aged-out turns into a rolling summary so the context
// window stays bounded no matter how long a conversation runs. Summaries
// accrete as segments; underlying messages are never deleted.
type Compressor struct {
	conversations database.ConversationRepositoryInterface
	messages      database.MessageRepositoryInterface
	logger        *zap.Logger
}

// NewCompressor creates a compressor over the conversation stores.
func NewCompressor(conversations database.ConversationRepositoryInterface, messages database.MessageRepositoryInterface, logger *zap.Logger) *Compressor {
	return &Compressor{
		conversations: conversations,
		messages:      messages,
		logger:        logger,
	}
}

// MaybeCompress runs after every successful turn. When the persisted
// message count crosses the auto-compress threshold, the messages that
// have aged out of the live window are digested into a new summary
// segment and the compression boundary advances to the current count.
// Running it again without new messages is a no-op.
func (c *Compressor) MaybeCompress(ctx context.Context, conv *models.Conversation, prefs *models.UserPreference) error {
	count, err := c.messages.CountByConversation(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if count < prefs.AutoCompressAfter || count <= conv.CompressedAtTurn {
		return nil
	}

	toFold := count - prefs.MaxContextMessages
	if toFold <= 0 {
		return nil
	}

	oldest, err := c.messages.GetOldest(ctx, conv.ID, toFold)
	if err != nil {
		return fmt.Errorf("load oldest messages: %w", err)
	}
	if len(oldest) == 0 {
		return nil
	}

	segment := Digest(oldest)
	conv.SummarySegments = append(conv.SummarySegments, segment)
	conv.CompressedAtTurn = count
	if err := c.conversations.Update(ctx, conv); err != nil {
		return fmt.Errorf("save compressed conversation: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("conversation_compressed",
			zap.String("conversation_id", conv.ID.String()),
			zap.Int("messages_summarized", len(oldest)),
			zap.Int("compressed_at_turn", count),
		)
	}
	return nil
}

// Digest extracts a pipe-delimited summary from a run of messages. The
// extraction is deterministic keyword work, not another model call.
func Digest(messages []*models.Message) string {
	var topics, metrics, recipes, reports []string

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			lower := strings.ToLower(msg.Content)
			if strings.Contains(lower, "weight") || strings.Contains(lower, "bmi") {
				appendUnique(&topics, "weight management")
			}
			if strings.Contains(lower, "meal") || strings.Contains(lower, "recipe") {
				appendUnique(&topics, "nutrition planning")
			}
			if strings.Contains(lower, "protein") || strings.Contains(lower, "calorie") {
				appendUnique(&topics, "nutritional tracking")
			}
		case models.RoleFunction:
			digestFunction(msg, &metrics, &recipes, &reports)
		}
	}

	var parts []string
	if len(topics) > 0 {
		parts = append(parts, "Discussed: "+strings.Join(topics, ", "))
	}
	if len(metrics) > 0 {
		parts = append(parts, "Metrics checked: "+strings.Join(metrics, ", "))
	}
	if len(recipes) > 0 {
		if len(recipes) > 3 {
			recipes = recipes[:3]
		}
		parts = append(parts, "Recipes: "+strings.Join(recipes, ", "))
	}
	if len(reports) > 0 {
		parts = append(parts, "Progress reports: "+strings.Join(reports, ", "))
	}
	parts = append(parts, fmt.Sprintf("(%d messages summarized)", len(messages)))
	return strings.Join(parts, " | ")
}

func digestFunction(msg *models.Message, metrics, recipes, reports *[]string) {
	switch FunctionName(msg.FunctionName) {
	case FnGetHealthMetrics:
		if mt, ok := argString(msg.FunctionArgs, "metric_type"); ok {
			appendUnique(metrics, mt)
		}
	case FnGetNutritionAnalysis:
		if n, ok := argString(msg.FunctionArgs, "nutrient"); ok {
			appendUnique(metrics, n)
		}
	case FnGetRecipeInfo:
		if msg.FunctionResponse != nil {
			if recipe, ok := msg.FunctionResponse["recipe"].(map[string]any); ok {
				if title, ok := recipe["title"].(string); ok && title != "" {
					appendUnique(recipes, title)
				}
			}
		}
	case FnGetProgressReport:
		if rt, ok := argString(msg.FunctionArgs, "report_type"); ok {
			appendUnique(reports, rt)
		}
	}
}

func argString(args map[string]any, key string) (string, bool) {
	if args == nil {
		return "", false
	}
	v, ok := args[key].(string)
	return v, ok && v != ""
}
