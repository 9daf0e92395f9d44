package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aqua777/docquery/llm"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces chat history lists in redis.
const DefaultRedisKeyPrefix = "docquery:chat:"

// RedisChatStore keeps one redis list per key, each element a JSON encoded
// message.
type RedisChatStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisChatStore.
type RedisOption func(*RedisChatStore)

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisChatStore) {
		r.prefix = prefix
	}
}

// WithTTL expires idle histories after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisChatStore) {
		r.ttl = ttl
	}
}

// NewRedisChatStore connects to redis and verifies the connection.
func NewRedisChatStore(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisChatStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisChatStoreWithClient(client, opts...), nil
}

// NewRedisChatStoreWithClient wraps an existing client.
func NewRedisChatStoreWithClient(client *redis.Client, opts ...RedisOption) *RedisChatStore {
	r := &RedisChatStore{
		client: client,
		prefix: DefaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisChatStore) key(key string) string {
	return r.prefix + key
}

// SetMessages replaces the list for key.
func (r *RedisChatStore) SetMessages(ctx context.Context, key string, messages []llm.ChatMessage) error {
	values, err := encodeMessages(messages)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(key))
		if len(values) > 0 {
			pipe.RPush(ctx, r.key(key), values...)
			r.expire(ctx, pipe, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set messages: %w", err)
	}
	return nil
}

// GetMessages returns the list for key.
func (r *RedisChatStore) GetMessages(ctx context.Context, key string) ([]llm.ChatMessage, error) {
	raw, err := r.client.LRange(ctx, r.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return decodeMessages(raw)
}

// AddMessages appends to the list for key.
func (r *RedisChatStore) AddMessages(ctx context.Context, key string, messages ...llm.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values, err := encodeMessages(messages)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.key(key), values...)
		r.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add messages: %w", err)
	}
	return nil
}

// DeleteMessages removes the list for key and returns what it held.
func (r *RedisChatStore) DeleteMessages(ctx context.Context, key string) ([]llm.ChatMessage, error) {
	var lrange *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, r.key(key), 0, -1)
		pipe.Del(ctx, r.key(key))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to delete messages: %w", err)
	}

	raw := lrange.Val()
	if len(raw) == 0 {
		return nil, nil
	}
	return decodeMessages(raw)
}

// GetKeys lists the keys under the store prefix, sorted.
func (r *RedisChatStore) GetKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the redis client.
func (r *RedisChatStore) Close() error {
	return r.client.Close()
}

func (r *RedisChatStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(key), r.ttl)
	}
}

func encodeMessages(messages []llm.ChatMessage) ([]interface{}, error) {
	values := make([]interface{}, len(messages))
	for i, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		values[i] = string(b)
	}
	return values, nil
}

func decodeMessages(raw []string) ([]llm.ChatMessage, error) {
	messages := make([]llm.ChatMessage, 0, len(raw))
	for _, s := range raw {
		var m llm.ChatMessage
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

var _ ChatStore = (*RedisChatStore)(nil)
