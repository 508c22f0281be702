package persistence

import (
	"fmt"
	"time"

	"github.com/skyagarwal/mangwale-flow/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type SessionNotFoundError struct {
	ConversationId string
}

func (e SessionNotFoundError) Error() string {
	return fmt.Sprintf("no session for conversation %s", e.ConversationId)
}

const WAIT_TIMEOUT_QUEUE string = "wait-timeout"

// SessionStore persists one Session per conversation. A missing session is
// reported as SessionNotFoundError, every other failure as StorageLayerError.
type SessionStore interface {
	GetSession(conversationId string) (*model.Session, error)
	SaveSession(session *model.Session) error
	DeleteSession(conversationId string) error
}

// DelayQueue holds messages that become visible once their deadline passes.
type DelayQueue interface {
	PushWithDelay(queueName string, delay time.Duration, message []byte) error
	Pop(queueName string) ([]string, error)
	Remove(queueName string, message []byte) error
}
