package model

type FlowState int

const RUNNING FlowState = 1
const WAITING FlowState = 2
const COMPLETED FlowState = 3
const FAILED FlowState = 4

func (s FlowState) String() string {
	switch s {
	case RUNNING:
		return "RUNNING"
	case WAITING:
		return "WAITING"
	case COMPLETED:
		return "COMPLETED"
	case FAILED:
		return "FAILED"
	}
	return "UNDEFINED"
}

// Session is the persisted per-conversation record, read-modify-written once
// per turn. WaitDeadline is unix millis; zero means no timeout is armed.
type Session struct {
	ConversationId string         `json:"conversationId"`
	ActiveFlowId   string         `json:"activeFlowId"`
	ActiveStateId  string         `json:"activeStateId"`
	State          FlowState      `json:"state"`
	Context        map[string]any `json:"context"`
	WaitDeadline   int64          `json:"waitDeadline,omitempty"`
	UpdatedAt      int64          `json:"updatedAt"`
}

func NewSession(conversationId string) *Session {
	return &Session{
		ConversationId: conversationId,
		Context:        make(map[string]any),
	}
}

// Clone deep-copies the session so a turn can mutate freely and commit only on
// success.
func (s *Session) Clone() *Session {
	copy := *s
	copy.Context = DeepCopyMap(s.Context)
	return &copy
}

// ContextOf exposes the session's context map as a ConversationContext. The
// map is shared, not copied; mutations flow back into the session.
func ContextOf(s *Session) *ConversationContext {
	if s.Context == nil {
		s.Context = make(map[string]any)
	}
	return &ConversationContext{
		ConversationId: s.ConversationId,
		Data:           s.Context,
	}
}

func (s *Session) InFlight() bool {
	return s.ActiveFlowId != "" && (s.State == RUNNING || s.State == WAITING)
}
