package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 25 * time.Second
	// DefaultMaxContextTokens is the context budget assumed for the model
	DefaultMaxContextTokens = 8192

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements ModelProvider using OpenAI's chat completion API.
type OpenAIProvider struct {
	client           openai.Client
	model            string
	maxContextTokens int
	logger           *zap.Logger
	debugMode        bool
}

// NewOpenAIProvider creates a new OpenAI provider. Configuration is passed
// in explicitly so tests can construct providers without environment state.
func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:           client,
		model:            model,
		maxContextTokens: DefaultMaxContextTokens,
		logger:           logger,
		debugMode:        debugMode,
	}
}

// MaxContextTokens reports the model's context budget in tokens.
func (p *OpenAIProvider) MaxContextTokens() int {
	return p.maxContextTokens
}

// Complete issues one chat completion. Failures are classified into
// ProviderError kinds so the caller never string-matches messages.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: toOpenAIMessages(req.Turns),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Functions) > 0 {
		params.Tools = toOpenAITools(req.Functions)
	}

	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "complete"),
			zap.String("model", p.model),
			zap.Int("message_count", len(req.Turns)),
			zap.Int("tool_count", len(req.Functions)),
			zap.Float64("temperature", req.Temperature),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "complete"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Kind: ErrorKindFatal, Message: ErrNoChoicesInResponse}
	}

	msg := resp.Choices[0].Message
	completion := &Completion{Content: msg.Content}
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		completion.FunctionCall = &FunctionCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}

	if p.logger != nil && p.debugMode {
		var fnName string
		if completion.FunctionCall != nil {
			fnName = completion.FunctionCall.Name
		}
		p.logger.Debug("llm_api_response",
			zap.String("operation", "complete"),
			zap.String("model", p.model),
			zap.Int("response_length", len(completion.Content)),
			zap.String("response_preview", SanitizeContent(completion.Content, true)),
			zap.String("function_called", fnName),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return completion, nil
}

// toOpenAIMessages converts context turns into the SDK message shapes.
// Function-role turns use the function message form so persisted grounding
// turns round-trip without tool-call identifiers.
func toOpenAIMessages(turns []ChatTurn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case TurnRoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case TurnRoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		case TurnRoleFunction:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfFunction: &openai.ChatCompletionFunctionMessageParam{
					Name:    t.FunctionName,
					Content: openai.String(t.Content),
				},
			})
		default:
			out = append(out, openai.UserMessage(t.Content))
		}
	}
	return out
}

// toOpenAITools converts registered function schemas into tool definitions.
func toOpenAITools(schemas []FunctionSchema) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		properties := make(map[string]any, len(s.Params))
		var required []string
		for _, p := range s.Params {
			prop := map[string]any{
				"type":        "string",
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		params := shared.FunctionParameters{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			params["required"] = required
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        string(s.Name),
			Description: openai.String(s.Description),
			Parameters:  params,
		}))
	}
	return out
}

// classifyOpenAIError maps SDK errors to the closed ProviderError kinds.
func classifyOpenAIError(err error) *ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:       classifyStatusCode(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ErrorKindTransient, Message: "model call timed out", Err: err}
	}
	return &ProviderError{
		Kind:    classifyErrorMessage(err.Error()),
		Message: fmt.Sprintf("model call failed: %v", err),
		Err:     err,
	}
}
