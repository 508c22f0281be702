package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/util"
)

type WhatsAppClient struct {
	client *resty.Client
}

func NewWhatsAppClient(baseUrl string, token string, timeout time.Duration) *WhatsAppClient {
	client := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(timeout).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")
	return &WhatsAppClient{client: client}
}

type PushMessage struct {
	To      string         `json:"to"`
	Message string         `json:"message"`
	Buttons []model.Button `json:"buttons,omitempty"`
}

func (w *WhatsAppClient) Send(ctx context.Context, msg PushMessage) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/messages")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp push returned status %d", resp.StatusCode())
	}
	return nil
}

var _ Executor = new(notifyExecutor)

// notifyExecutor pushes a WhatsApp message to a number outside the reply
// stream. With await unset the push is queued on a worker so the turn never
// blocks on the gateway.
type notifyExecutor struct {
	whatsapp *WhatsAppClient
	sender   chan<- util.Task
}

func NewNotifyExecutor(whatsapp *WhatsAppClient, sender chan<- util.Task) *notifyExecutor {
	return &notifyExecutor{whatsapp: whatsapp, sender: sender}
}

func (e *notifyExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	msg := PushMessage{
		To:      getString(config, "to"),
		Message: getString(config, "message"),
		Buttons: parseButtons(config["buttons"]),
	}
	if msg.To == "" {
		msg.To = conversation.ConversationId
	}
	if msg.Message == "" {
		return nil, fmt.Errorf("whatsapp_notify config missing message")
	}
	if getBool(config, "await") || e.sender == nil {
		if err := e.whatsapp.Send(ctx, msg); err != nil {
			return nil, err
		}
		return &Result{Event: model.EVENT_SUCCESS}, nil
	}
	select {
	case e.sender <- msg:
	default:
		logger.Warn("notify queue full, sending inline", zap.String("to", msg.To))
		if err := e.whatsapp.Send(ctx, msg); err != nil {
			return nil, err
		}
	}
	return &Result{Event: model.EVENT_SUCCESS}, nil
}

// NotifyHandler is the worker drain side of the fire-and-forget path.
func NotifyHandler(whatsapp *WhatsAppClient) func(util.Task) error {
	return func(task util.Task) error {
		msg, ok := task.(PushMessage)
		if !ok {
			return fmt.Errorf("unexpected notify task type %T", task)
		}
		return whatsapp.Send(context.Background(), msg)
	}
}
