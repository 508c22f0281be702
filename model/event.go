package model

// InboundEvent is a single user turn: raw text, a button payload, or a
// pre-classified intent label from an upstream classifier.
type InboundEvent struct {
	ConversationId string `json:"conversationId"`
	Message        string `json:"message"`
	Payload        string `json:"payload,omitempty"`
	Intent         string `json:"intent,omitempty"`
}

// Text returns the effective user input: button payloads win over free text.
func (e InboundEvent) Text() string {
	if e.Payload != "" {
		return e.Payload
	}
	return e.Message
}

type Button struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

type OutboundMessage struct {
	Id      string   `json:"id"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// OutboundEffects is everything one turn produced for the delivery channel,
// in send order.
type OutboundEffects struct {
	ConversationId string            `json:"conversationId"`
	Messages       []OutboundMessage `json:"messages"`
	FlowId         string            `json:"flowId,omitempty"`
	StateId        string            `json:"stateId,omitempty"`
	Completed      bool              `json:"completed"`
}

func NewOutboundEffects(conversationId string) *OutboundEffects {
	return &OutboundEffects{
		ConversationId: conversationId,
		Messages:       make([]OutboundMessage, 0),
	}
}

func (fx *OutboundEffects) AddMessage(m OutboundMessage) {
	fx.Messages = append(fx.Messages, m)
}
