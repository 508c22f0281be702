package executor

import (
	"context"
	"fmt"

	"github.com/skyagarwal/mangwale-flow/model"
)

const addressPrompt = `Extract a delivery address from the user message below.
Reply with JSON only: {"street": "", "area": "", "city": "", "pincode": "",
"latitude": 0, "longitude": 0, "complete": false}. Set complete to true only
when street and city are both present.

User message: %s`

var _ Executor = new(addressExecutor)

// addressExecutor turns free text into a structured address with coordinates.
// Incomplete extractions emit waiting_for_input so the flow can ask for the
// missing pieces.
type addressExecutor struct {
	llm LLMClient
}

func NewAddressExecutor(llm LLMClient) *addressExecutor {
	return &addressExecutor{llm: llm}
}

func (e *addressExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	text := getString(config, "text")
	if text == "" {
		text = conversation.UserMessage()
	}
	if text == "" {
		return &Result{Event: "waiting_for_input"}, nil
	}
	completion, err := e.llm.Complete(ctx, fmt.Sprintf(addressPrompt, text))
	if err != nil {
		return nil, err
	}
	parsed, err := ParseJSONCompletion(completion)
	if err != nil {
		return nil, fmt.Errorf("address extraction is not valid json: %w", err)
	}
	address, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("address extraction is not an object")
	}
	if complete, _ := address["complete"].(bool); !complete {
		return &Result{Output: address, Event: "waiting_for_input"}, nil
	}
	return &Result{Output: address, Event: model.EVENT_SUCCESS}, nil
}
