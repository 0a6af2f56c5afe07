package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryKV is a process-local key-value store.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{data: make(map[string][]byte)} }

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// RedisKV stores values as plain Redis strings. A positive TTL is applied on
// every Set so abandoned sessions expire on their own.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisKV(addr, password string, ttl time.Duration) *RedisKV {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisKV{client: c, ttl: ttl}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisKV) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisKV) Close() error { return r.client.Close() }

// KV is the get/set/delete surface shared by the stores above.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Namespaced prefixes every key with ns + ":" so one backing store can hold
// the slots of many client sessions.
type Namespaced struct {
	KV KV
	NS string
}

func (n Namespaced) key(k string) string { return n.NS + ":" + k }

func (n Namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.KV.Get(ctx, n.key(key))
}

func (n Namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.KV.Set(ctx, n.key(key), value)
}

func (n Namespaced) Delete(ctx context.Context, key string) error {
	return n.KV.Delete(ctx, n.key(key))
}
