package assistant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
	"go.uber.org/zap"
)

const (
	// MaxMessageLength bounds incoming user text.
	MaxMessageLength = 4000
	// MaxTitleLength bounds the provisional title taken from the first message.
	MaxTitleLength = 50

	// defaultTemperature is used when no deterministic prefetch occurred.
	defaultTemperature = 0.7
	// groundedTemperature restricts decoding when prefetch data is present,
	// favoring literal grounding over creative phrasing.
	groundedTemperature = 0.2

	// lockStripes is the size of the per-conversation lock table.
	lockStripes = 64
)

var (
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong is returned when user input exceeds MaxMessageLength.
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	// ErrConversationNotFound is returned when the referenced conversation
	// does not exist or belongs to another user.
	ErrConversationNotFound = errors.New("conversation not found")
)

// groundingInstruction is appended to the system prompt when prefetch data
// accompanies the turn.
const groundingInstruction = "\n\nFunction results in this conversation contain the user's real data. " +
	"Use only those numeric values in your answer; never fabricate numbers beyond what the function results provide."

// TurnResult is the outcome of one successful user turn.
type TurnResult struct {
	Message        string    `json:"message"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	FunctionCalled string    `json:"function_called,omitempty"`

	// Maintenance hints for the caller. Not part of the API envelope.
	NeedsTitle      bool `json:"-"`
	SummarySegments int  `json:"-"`
}

// Orchestrator sequences the per-turn pipeline: safety gate, reference
// resolution, context window assembly, targeted prefetch, up to two model
// passes, persistence, and compression. A conversation is single-writer:
// concurrent turns on the same conversation serialize on a striped lock.
type Orchestrator struct {
	conversations database.ConversationRepositoryInterface
	messages      database.MessageRepositoryInterface
	preferences   database.PreferenceRepositoryInterface
	dispatcher    *Dispatcher
	prefetcher    *Prefetcher
	prompts       *PromptRenderer
	compressor    *Compressor
	provider      ModelProvider
	logger        *zap.Logger

	locks [lockStripes]sync.Mutex
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	conversations database.ConversationRepositoryInterface,
	messages database.MessageRepositoryInterface,
	preferences database.PreferenceRepositoryInterface,
	dispatcher *Dispatcher,
	prefetcher *Prefetcher,
	prompts *PromptRenderer,
	compressor *Compressor,
	provider ModelProvider,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		messages:      messages,
		preferences:   preferences,
		dispatcher:    dispatcher,
		prefetcher:    prefetcher,
		prompts:       prompts,
		compressor:    compressor,
		provider:      provider,
		logger:        logger,
	}
}

func (o *Orchestrator) lockFor(conversationID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(conversationID[:])
	return &o.locks[h.Sum32()%lockStripes]
}

// SendMessage processes one user turn end to end and returns the
// assistant's reply. conversationID selects an existing conversation; nil
// continues the user's active conversation or starts a new one.
func (o *Orchestrator) SendMessage(ctx context.Context, user *models.User, text string, conversationID *uuid.UUID) (*TurnResult, error) {
	if len(text) == 0 || allWhitespace(text) {
		return nil, ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conv, isNew, err := o.resolveConversation(ctx, user.ID, conversationID, text)
	if err != nil {
		return nil, err
	}

	lock := o.lockFor(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	// The safety gate runs before anything else touches the model pipeline.
	// The user turn is still persisted so history records the attempt.
	if ShouldRefuse(text) {
		if _, err := o.persistMessage(ctx, conv.ID, models.RoleUser, text, "", nil, nil); err != nil {
			return nil, fmt.Errorf("persist user message: %w", err)
		}
		reply, err := o.persistMessage(ctx, conv.ID, models.RoleAssistant, RefusalMessage, "", nil, nil)
		if err != nil {
			return nil, fmt.Errorf("persist refusal: %w", err)
		}
		if o.logger != nil {
			o.logger.Info("safety_gate_refusal",
				zap.String("conversation_id", conv.ID.String()),
				zap.String("user_id", user.ID.String()),
			)
		}
		return &TurnResult{
			Message:        RefusalMessage,
			ConversationID: conv.ID,
			MessageID:      reply.ID,
		}, nil
	}

	prefs, err := o.preferences.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	// History is read before this turn's messages are persisted so the
	// window and the resolver see only prior turns.
	recent, err := o.recentChronological(ctx, conv.ID, prefs.MaxContextMessages)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// The original text is persisted for audit; the resolved text is what
	// the model sees.
	info := ExtractContext(recent)
	resolved := Resolve(text, info)

	if _, err := o.persistMessage(ctx, conv.ID, models.RoleUser, text, "", nil, nil); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	prefetched := o.prefetcher.Prefetch(ctx, user.ID, resolved, info)
	for _, pf := range prefetched {
		if pf.Err != "" || pf.Result == nil {
			continue
		}
		content := renderFunctionContent(pf.Result)
		if _, err := o.persistMessage(ctx, conv.ID, models.RoleFunction, content, string(pf.Function), pf.Args, pf.Result); err != nil {
			return nil, fmt.Errorf("persist prefetch result: %w", err)
		}
	}

	// Only prefetches that actually produced data count as grounding;
	// error-only entries never reach the context.
	grounded := false
	for _, pf := range prefetched {
		if pf.Err == "" && pf.Result != nil {
			grounded = true
			break
		}
	}

	systemPrompt := o.prompts.Render(ctx, user, prefs)
	temperature := defaultTemperature
	if grounded {
		systemPrompt += groundingInstruction
		temperature = groundedTemperature
	}

	turns, tokens := BuildWindow(WindowInput{
		SystemPrompt: systemPrompt,
		Summary:      conv.ContextSummary(),
		Recent:       recent,
		Prefetched:   prefetched,
		UserText:     resolved,
		MaxMessages:  prefs.MaxContextMessages,
		MaxTokens:    o.provider.MaxContextTokens(),
	})
	if o.logger != nil {
		o.logger.Debug("context_window_built",
			zap.String("conversation_id", conv.ID.String()),
			zap.Int("turn_count", len(turns)),
			zap.Int("token_estimate", tokens),
		)
	}

	reply, functionCalled, err := o.invokeModel(ctx, user.ID, conv.ID, turns, temperature)
	if err != nil {
		// A diagnostic turn is persisted so history records the attempt.
		note := "The assistant could not respond to the previous message due to a service error."
		if _, perr := o.persistMessage(ctx, conv.ID, models.RoleSystem, note, "", nil, nil); perr != nil && o.logger != nil {
			o.logger.Error("persist error note failed", zap.Error(perr))
		}
		return nil, err
	}

	replyMsg, err := o.persistMessage(ctx, conv.ID, models.RoleAssistant, reply, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	if err := o.compressor.MaybeCompress(ctx, conv, prefs); err != nil && o.logger != nil {
		// Compression failure must not fail a delivered turn.
		o.logger.Error("compression failed",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err),
		)
	}

	if isNew && o.logger != nil {
		o.logger.Info("conversation_started",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("user_id", user.ID.String()),
		)
	}

	return &TurnResult{
		Message:         reply,
		ConversationID:  conv.ID,
		MessageID:       replyMsg.ID,
		FunctionCalled:  functionCalled,
		NeedsTitle:      isNew || conv.Title == "",
		SummarySegments: len(conv.SummarySegments),
	}, nil
}

// invokeModel issues pass 1 with the function registry offered. If the
// model elects a function, the dispatcher runs it, the result is appended
// as a function turn, and pass 2 is issued without tools to force a
// natural-language synthesis.
func (o *Orchestrator) invokeModel(ctx context.Context, userID, conversationID uuid.UUID, turns []ChatTurn, temperature float64) (string, string, error) {
	first, err := o.provider.Complete(ctx, CompletionRequest{
		Turns:       turns,
		Functions:   Schemas(),
		Temperature: temperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("model pass 1: %w", err)
	}

	if first.FunctionCall == nil {
		return first.Content, "", nil
	}

	name := FunctionName(first.FunctionCall.Name)
	args := map[string]any{}
	if first.FunctionCall.Arguments != "" {
		// Malformed arguments become an error envelope the model explains.
		if err := json.Unmarshal([]byte(first.FunctionCall.Arguments), &args); err != nil {
			args = map[string]any{}
		}
	}
	result := o.dispatcher.Dispatch(ctx, userID, name, args)

	content := renderFunctionContent(result)
	if _, err := o.persistMessage(ctx, conversationID, models.RoleFunction, content, string(name), args, result); err != nil {
		return "", "", fmt.Errorf("persist function result: %w", err)
	}

	turns = append(turns, functionTurn(string(name), result))
	second, err := o.provider.Complete(ctx, CompletionRequest{
		Turns:       turns,
		Temperature: temperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("model pass 2: %w", err)
	}
	return second.Content, string(name), nil
}

// resolveConversation finds the conversation for this turn: an explicit
// one by id, the user's active conversation, or a fresh one titled from
// the first message.
func (o *Orchestrator) resolveConversation(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, firstText string) (*models.Conversation, bool, error) {
	if conversationID != nil {
		conv, err := o.conversations.GetByID(ctx, *conversationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, ErrConversationNotFound
			}
			return nil, false, fmt.Errorf("load conversation: %w", err)
		}
		if conv == nil || conv.UserID != userID || !conv.IsActive {
			return nil, false, ErrConversationNotFound
		}
		return conv, false, nil
	}

	// No active conversation surfaces as sql.ErrNoRows; a first message
	// starts a fresh one.
	conv, err := o.conversations.GetActiveByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("load active conversation: %w", err)
	}
	if conv != nil {
		return conv, false, nil
	}

	conv = &models.Conversation{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    TruncateString(firstText, MaxTitleLength),
		IsActive: true,
	}
	if err := o.conversations.Create(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}
	return conv, true, nil
}

// Clear deactivates the user's conversation and starts a fresh one.
func (o *Orchestrator) Clear(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	if err := o.conversations.Deactivate(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("deactivate conversation: %w", err)
	}

	fresh := &models.Conversation{
		ID:       uuid.New(),
		UserID:   userID,
		IsActive: true,
	}
	if err := o.conversations.Create(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return fresh, nil
}

// History returns the most recent turns of a conversation, oldest first.
func (o *Orchestrator) History(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return o.recentChronological(ctx, conversationID, limit)
}

// recentChronological loads the newest limit messages then reverses them
// into chronological order.
func (o *Orchestrator) recentChronological(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	msgs, err := o.messages.GetRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (o *Orchestrator) persistMessage(ctx context.Context, conversationID uuid.UUID, role models.MessageRole, content, functionName string, args, response map[string]any) (*models.Message, error) {
	msg := &models.Message{
		ID:               uuid.New(),
		ConversationID:   conversationID,
		Role:             role,
		Content:          content,
		FunctionName:     functionName,
		FunctionArgs:     args,
		FunctionResponse: response,
		TokenCount:       estimateTokenCount(content),
	}
	if err := o.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// renderFunctionContent is the text form of a function result stored in
// the message log.
func renderFunctionContent(result map[string]any) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return `{"success":false}`
	}
	return string(encoded)
}

func allWhitespace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
