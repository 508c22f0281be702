package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/skyagarwal/mangwale-flow/model"
)

var _ Executor = new(responseExecutor)

// responseExecutor composes an outbound message from already-rendered config.
// It never fails.
type responseExecutor struct{}

func NewResponseExecutor() *responseExecutor {
	return &responseExecutor{}
}

func (e *responseExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	message := getString(config, "message")
	outbound := &model.OutboundMessage{
		Id:      uuid.New().String(),
		Text:    message,
		Buttons: parseButtons(config["buttons"]),
	}
	return &Result{
		Output:   message,
		Outbound: outbound,
	}, nil
}

func parseButtons(value any) []model.Button {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	buttons := make([]model.Button, 0, len(items))
	for _, item := range items {
		switch b := item.(type) {
		case string:
			buttons = append(buttons, model.Button{Label: b, Value: b})
		case map[string]any:
			buttons = append(buttons, model.Button{
				Label: getString(b, "label"),
				Value: getString(b, "value"),
			})
		}
	}
	return buttons
}
