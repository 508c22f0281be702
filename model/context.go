package model

// reserved context keys shared between the engine and flow content
const KEY_CONVERSATION_ID = "_conversation_id"
const KEY_USER_MESSAGE = "_user_message"
const KEY_LAST_RESPONSE = "_last_response"
const KEY_AUTHENTICATED = "authenticated"
const KEY_PENDING_ACTION = "pendingAction"

// ConversationContext is the single mutable per-conversation record. It lives
// for the lifetime of the conversation and is superseded, never deleted,
// across flow completions.
type ConversationContext struct {
	ConversationId string
	Data           map[string]any
}

func NewConversationContext(conversationId string) *ConversationContext {
	return &ConversationContext{
		ConversationId: conversationId,
		Data:           make(map[string]any),
	}
}

func (c *ConversationContext) Get(key string) (any, bool) {
	v, ok := c.Data[key]
	return v, ok
}

func (c *ConversationContext) Set(key string, value any) {
	c.Data[key] = value
}

func (c *ConversationContext) GetString(key string) string {
	if v, ok := c.Data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (c *ConversationContext) GetBool(key string) bool {
	if v, ok := c.Data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func (c *ConversationContext) Authenticated() bool {
	return c.GetBool(KEY_AUTHENTICATED)
}

func (c *ConversationContext) PendingAction() string {
	return c.GetString(KEY_PENDING_ACTION)
}

func (c *ConversationContext) UserMessage() string {
	return c.GetString(KEY_USER_MESSAGE)
}

// Merge writes every entry of data into the context, overwriting on key
// collision.
func (c *ConversationContext) Merge(data map[string]any) {
	for k, v := range data {
		c.Data[k] = v
	}
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return value
	}
}

func DeepCopyMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return deepCopyValue(data).(map[string]any)
}
