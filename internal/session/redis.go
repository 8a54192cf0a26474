package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "habitbot:session:"

type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, logger: logger}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, chatID)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (State, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{Kind: Idle}, nil
	}
	if err != nil {
		s.logger.Error("Failed to load session", zap.Int64("chat_id", chatID), zap.Error(err))
		return State{}, fmt.Errorf("load session: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		// 损坏的会话直接丢弃
		s.logger.Warn("Dropping unreadable session", zap.Int64("chat_id", chatID), zap.Error(err))
		_ = s.rdb.Del(ctx, sessionKey(chatID)).Err()
		return State{Kind: Idle}, nil
	}
	return st, nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, state State) error {
	if state.IsIdle() {
		return s.Clear(ctx, chatID)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(chatID), raw, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save session", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.rdb.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
