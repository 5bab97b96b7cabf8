package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/domain"
	"github.com/corvid-ai/corvid/internal/metrics"
)

// RetrieveToolName is the single tool the chat model may call.
const RetrieveToolName = "retrieve"

// retrieveTool is the function definition advertised to the model.
var retrieveTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name: RetrieveToolName,
		Description: "Search the indexed document corpora for passages relevant to a query. " +
			"Call this before answering questions about the documents. " +
			"Optionally restrict the search to specific corpora.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query, phrased as a standalone question."
				},
				"corpora": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Corpus names to search. Omit to search all corpora."
				}
			},
			"required": ["query"]
		}`),
	},
}

// ChatModel is a tool-calling chat completion client over the
// OpenAI-compatible API.
type ChatModel struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// ChatConfig holds the chat model settings.
type ChatConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// NewChatModel creates an OpenAI-compatible chat completion client.
func NewChatModel(cfg *ChatConfig) *ChatModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &ChatModel{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: retries,
		logger:     cfg.Logger,
	}
}

// Complete runs one chat completion over the given messages. When allowTools
// is true the retrieval tool is offered and the returned message may carry
// tool calls; when false the model must produce a plain answer.
//
// Transient provider failures (quota, 5xx, timeouts) are retried with
// exponential backoff inside the call budget. Errors that survive the
// retries wrap domain.ErrUpstreamModel.
func (c *ChatModel) Complete(ctx context.Context, msgs []domain.Message, allowTools bool) (domain.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toAPIMessages(msgs),
	}
	if allowTools {
		req.Tools = []openai.Tool{retrieveTool}
	}

	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return domain.Message{}, fmt.Errorf("chat completion: %w: %w", ctx.Err(), domain.ErrUpstreamModel)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		msg, err := c.complete(ctx, req)
		if err == nil {
			return msg, nil
		}
		lastErr = err

		if !retryableChatError(err) {
			break
		}
	}

	return domain.Message{}, fmt.Errorf("chat completion: %v: %w", lastErr, domain.ErrUpstreamModel)
}

func (c *ChatModel) complete(ctx context.Context, req openai.ChatCompletionRequest) (domain.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(callCtx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Message{}, err
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("empty chat response")
	}

	return fromAPIMessage(resp.Choices[0].Message), nil
}

// retryableChatError reports whether the failure is worth another attempt:
// quota hits, provider-side errors, and deadline expiry of a single call.
func retryableChatError(err error) bool {
	status, _ := apiErrorDetail(err)
	if status == 429 || status >= 500 {
		return true
	}
	if status > 0 {
		return false // 4xx other than 429 will not improve on retry
	}
	// No HTTP status: network failure or per-call timeout.
	return true
}

// toAPIMessages converts the domain conversation to the wire format.
func toAPIMessages(msgs []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		am := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		for _, call := range m.ToolCalls {
			am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		if m.Role == domain.RoleTool {
			am.ToolCallID = m.ToolCallID
			am.Name = m.ToolName
		}
		out = append(out, am)
	}
	return out
}

// fromAPIMessage converts a completion choice back to a domain message.
func fromAPIMessage(m openai.ChatCompletionMessage) domain.Message {
	if len(m.ToolCalls) == 0 {
		return domain.NewAssistantMessage(m.Content)
	}
	calls := make([]domain.ToolCall, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		calls = append(calls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return domain.NewToolCallMessage(m.Content, calls)
}
