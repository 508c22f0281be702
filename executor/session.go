package executor

import (
	"context"
	"fmt"

	"github.com/skyagarwal/mangwale-flow/model"
)

var _ Executor = new(sessionExecutor)

// sessionExecutor persists fields into the conversation context. The engine
// commits the context at turn end, so this is a pure map mutation here.
type sessionExecutor struct{}

func NewSessionExecutor() *sessionExecutor {
	return &sessionExecutor{}
}

func (e *sessionExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	action := getString(config, "action")
	switch action {
	case "save", "":
		data := getMap(config, "data")
		conversation.Merge(data)
		return &Result{Output: data}, nil
	case "delete":
		fields, _ := config["fields"].([]any)
		for _, f := range fields {
			if key, ok := f.(string); ok {
				delete(conversation.Data, key)
			}
		}
		return &Result{}, nil
	}
	return nil, fmt.Errorf("unknown session action %s", action)
}
