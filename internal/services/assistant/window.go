package assistant

import (
	"encoding/json"

	"github.com/wellora/wellness-api/internal/models"
)

// contextBudgetRatio caps the context window at this fraction of the
// model's token budget, reserving the remainder for the response.
const contextBudgetRatio = 0.7

// WindowInput carries everything one context window build needs. Recent
// holds up to MaxMessages persisted messages in chronological order;
// Prefetched holds this turn's grounding results; UserText is the (already
// resolved) current user turn.
type WindowInput struct {
	SystemPrompt string
	Summary      string
	Recent       []*models.Message
	Prefetched   []PrefetchResult
	UserText     string
	MaxMessages  int
	MaxTokens    int
}

// BuildWindow assembles the bounded, chronological turn list sent to the
// model: system prompt, optional summary turn, recent history, prefetched
// function results, then the current user turn. History is filled greedily
// from most recent backwards, bounded by both the message-count cap and
// 70% of the token budget, whichever binds first. Returns the turns and
// the estimated token total.
func BuildWindow(in WindowInput) ([]ChatTurn, int) {
	budget := int(float64(in.MaxTokens) * contextBudgetRatio)

	head := []ChatTurn{{Role: TurnRoleSystem, Content: in.SystemPrompt}}
	if in.Summary != "" {
		head = append(head, ChatTurn{
			Role:    TurnRoleSystem,
			Content: "Previous conversation summary: " + in.Summary,
		})
	}

	tail := make([]ChatTurn, 0, len(in.Prefetched)+1)
	for _, pf := range in.Prefetched {
		if pf.Err != "" || pf.Result == nil {
			continue
		}
		tail = append(tail, functionTurn(string(pf.Function), pf.Result))
	}
	tail = append(tail, ChatTurn{Role: TurnRoleUser, Content: in.UserText})

	// The head and tail are mandatory; history competes for what remains.
	tokens := 0
	for _, t := range head {
		tokens += estimateTokenCount(t.Content)
	}
	for _, t := range tail {
		tokens += estimateTokenCount(t.Content)
	}

	recent := in.Recent
	if in.MaxMessages > 0 && len(recent) > in.MaxMessages {
		recent = recent[len(recent)-in.MaxMessages:]
	}

	// Greedy fill from most recent backwards under the token cap.
	var selected []*models.Message
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		cost := msg.TokenCount
		if cost <= 0 {
			cost = estimateTokenCount(msg.Content)
		}
		if budget > 0 && tokens+cost > budget {
			break
		}
		tokens += cost
		selected = append(selected, msg)
	}

	turns := head
	// selected is newest-first; re-reverse to chronological.
	for i := len(selected) - 1; i >= 0; i-- {
		turns = append(turns, messageTurn(selected[i]))
	}
	turns = append(turns, tail...)
	return turns, tokens
}

// messageTurn translates a persisted message into the provider turn shape.
// Function-role messages carry the name plus JSON-encoded response.
func messageTurn(msg *models.Message) ChatTurn {
	if msg.Role == models.RoleFunction {
		return functionTurn(msg.FunctionName, msg.FunctionResponse)
	}
	return ChatTurn{Role: TurnRole(msg.Role), Content: msg.Content}
}

func functionTurn(name string, response map[string]any) ChatTurn {
	encoded, err := json.Marshal(response)
	if err != nil {
		encoded = []byte(`{"success":false}`)
	}
	return ChatTurn{
		Role:         TurnRoleFunction,
		FunctionName: name,
		Content:      string(encoded),
	}
}
