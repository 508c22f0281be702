package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

// BackendResponse is the envelope the order backend answers with for every
// business action.
type BackendResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type BackendClient struct {
	client *resty.Client
}

func NewBackendClient(baseUrl string, timeout time.Duration) *BackendClient {
	client := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &BackendClient{client: client}
}

func (b *BackendClient) Call(ctx context.Context, action string, params map[string]any) (*BackendResponse, error) {
	var out BackendResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"action": action, "params": params}).
		SetResult(&out).
		Post("/api/bot")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("backend action %s returned status %d", action, resp.StatusCode())
	}
	return &out, nil
}

var _ Executor = new(backendExecutor)

// backendExecutor covers the php_api contract: an arbitrary business action
// keyed by the config's "action" field, answered with a success flag plus
// payload.
type backendExecutor struct {
	backend *BackendClient
}

func NewBackendExecutor(backend *BackendClient) *backendExecutor {
	return &backendExecutor{backend: backend}
}

func (e *backendExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	action := getString(config, "action")
	if action == "" {
		return nil, fmt.Errorf("php_api config missing action")
	}
	params := getMap(config, "params")
	resp, err := e.backend.Call(ctx, action, params)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		logger.Debug("backend action rejected",
			zap.String("action", action),
			zap.String("conversation", conversation.ConversationId),
			zap.String("message", resp.Message))
		return &Result{Output: resp.Data, Event: model.EVENT_ERROR}, nil
	}
	return &Result{Output: resp.Data, Event: model.EVENT_SUCCESS}, nil
}
