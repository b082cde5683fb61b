package repository

import (
	"context"
	"institute_backend/internal/model"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionStateBackend 会话状态的持久化 KV，每次写入都是同步落盘
type SessionStateBackend interface {
	Get(ctx context.Context, key model.SessionKey) (string, bool, error)
	Set(ctx context.Context, key model.SessionKey, value string) error
	Delete(ctx context.Context, keys ...model.SessionKey) error
}

type RedisSessionStateRepository struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisSessionStateRepository(rdb *redis.Client, ttl time.Duration) *RedisSessionStateRepository {
	return &RedisSessionStateRepository{Redis: rdb, TTL: ttl}
}

func (r *RedisSessionStateRepository) Get(ctx context.Context, key model.SessionKey) (string, bool, error) {
	val, err := r.Redis.Get(ctx, key.String()).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisSessionStateRepository) Set(ctx context.Context, key model.SessionKey, value string) error {
	return r.Redis.Set(ctx, key.String(), value, r.TTL).Err()
}

func (r *RedisSessionStateRepository) Delete(ctx context.Context, keys ...model.SessionKey) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := r.Redis.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, k.String())
	}
	_, err := pipe.Exec(ctx)
	return err
}

// MemorySessionStateRepository 单进程部署或测试使用，进程重启后状态丢失
type MemorySessionStateRepository struct {
	mu   sync.RWMutex
	data map[model.SessionKey]string
}

func NewMemorySessionStateRepository() *MemorySessionStateRepository {
	return &MemorySessionStateRepository{data: make(map[model.SessionKey]string)}
}

func (m *MemorySessionStateRepository) Get(_ context.Context, key model.SessionKey) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemorySessionStateRepository) Set(_ context.Context, key model.SessionKey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemorySessionStateRepository) Delete(_ context.Context, keys ...model.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
