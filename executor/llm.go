package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/skyagarwal/mangwale-flow/model"
)

// LLMClient is the completion capability the llm and address executors build
// on. Kept as an interface so tests can run without a model endpoint.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type restyLLMClient struct {
	client *resty.Client
	model  string
}

func NewLLMClient(baseUrl string, apiKey string, modelName string, timeout time.Duration) *restyLLMClient {
	client := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &restyLLMClient{client: client, model: modelName}
}

func (c *restyLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("llm returned status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

var _ Executor = new(llmExecutor)

type llmExecutor struct {
	client LLMClient
}

func NewLLMExecutor(client LLMClient) *llmExecutor {
	return &llmExecutor{client: client}
}

func (e *llmExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	prompt := getString(config, "prompt")
	if prompt == "" {
		return nil, fmt.Errorf("llm config missing prompt")
	}
	completion, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if getBool(config, "parseJson") {
		parsed, err := ParseJSONCompletion(completion)
		if err != nil {
			return nil, fmt.Errorf("llm output is not valid json: %w", err)
		}
		return &Result{Output: parsed, Event: model.EVENT_SUCCESS}, nil
	}
	return &Result{Output: completion, Event: model.EVENT_SUCCESS}, nil
}

// ParseJSONCompletion tolerates the markdown code fences models like to wrap
// JSON answers in.
func ParseJSONCompletion(completion string) (any, error) {
	s := strings.TrimSpace(completion)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
