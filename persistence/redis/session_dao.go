package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
	"github.com/skyagarwal/mangwale-flow/util"
)

const SESSION_KEY string = "SESSION"

var _ persistence.SessionStore = new(redisSessionStore)

type redisSessionStore struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.Session]
}

func NewRedisSessionStore(conf Config) *redisSessionStore {
	return &redisSessionStore{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Session](),
	}
}

func (r *redisSessionStore) SaveSession(session *model.Session) error {
	key := r.getNamespaceKey(SESSION_KEY)
	ctx := context.Background()
	data, err := r.encoderDecoder.Encode(*session)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, []string{session.ConversationId, string(data)}).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisSessionStore) GetSession(conversationId string) (*model.Session, error) {
	key := r.getNamespaceKey(SESSION_KEY)
	ctx := context.Background()
	sessionStr, err := r.redisClient.HGet(ctx, key, conversationId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.SessionNotFoundError{ConversationId: conversationId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	session, err := r.encoderDecoder.Decode([]byte(sessionStr))
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *redisSessionStore) DeleteSession(conversationId string) error {
	key := r.getNamespaceKey(SESSION_KEY)
	ctx := context.Background()
	if err := r.redisClient.HDel(ctx, key, conversationId).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
