package inmem

import (
	"sort"
	"sync"
	"time"

	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
)

var _ persistence.SessionStore = new(inMemorySessionStore)

type inMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewInMemorySessionStore() *inMemorySessionStore {
	return &inMemorySessionStore{
		sessions: make(map[string]model.Session),
	}
}

func (s *inMemorySessionStore) GetSession(conversationId string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[conversationId]
	if !ok {
		return nil, persistence.SessionNotFoundError{ConversationId: conversationId}
	}
	copy := session.Clone()
	return copy, nil
}

func (s *inMemorySessionStore) SaveSession(session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ConversationId] = *session.Clone()
	return nil
}

func (s *inMemorySessionStore) DeleteSession(conversationId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationId)
	return nil
}

var _ persistence.DelayQueue = new(inMemoryDelayQueue)

type delayed struct {
	message  string
	deadline int64
}

type inMemoryDelayQueue struct {
	mu     sync.Mutex
	queues map[string][]delayed
}

func NewInMemoryDelayQueue() *inMemoryDelayQueue {
	return &inMemoryDelayQueue{
		queues: make(map[string][]delayed),
	}
}

func (q *inMemoryDelayQueue) PushWithDelay(queueName string, delay time.Duration, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queueName] = append(q.queues[queueName], delayed{
		message:  string(message),
		deadline: time.Now().Add(delay).UnixMilli(),
	})
	return nil
}

func (q *inMemoryDelayQueue) Pop(queueName string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().UnixMilli()
	var due []string
	var rest []delayed
	for _, d := range q.queues[queueName] {
		if d.deadline <= now {
			due = append(due, d.message)
		} else {
			rest = append(rest, d)
		}
	}
	q.queues[queueName] = rest
	sort.Strings(due)
	return due, nil
}

func (q *inMemoryDelayQueue) Remove(queueName string, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg := string(message)
	var rest []delayed
	for _, d := range q.queues[queueName] {
		if d.message != msg {
			rest = append(rest, d)
		}
	}
	q.queues[queueName] = rest
	return nil
}
