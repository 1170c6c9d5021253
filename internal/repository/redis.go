package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/domain"
)

const defaultSessionPrefix = "storefront:session:"

// RedisSessions хранит состояние сессий в Redis в виде JSON. TTL продлевается при каждом сохранении.
type RedisSessions struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, prefix string, ttl time.Duration) *RedisSessions {
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &RedisSessions{client: client, prefix: prefix, ttl: ttl}
}

var _ SessionRepository = (*RedisSessions)(nil)

func (r *RedisSessions) key(id string) string { return r.prefix + id }

func (r *RedisSessions) Get(ctx context.Context, id string) (*domain.SessionState, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var s domain.SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessions) Save(ctx context.Context, id string, s *domain.SessionState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Ping проверяет соединение при старте
func (r *RedisSessions) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
