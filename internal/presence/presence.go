// Package presence tracks who is online and each user's latest message
// summary, backed by Redis with an in-memory fallback when Redis is
// unreachable.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineKeyPrefix = "presence:online:"
	lastKeyPrefix   = "presence:last:"

	// onlineTTL bounds staleness when a node dies without cleaning up.
	onlineTTL = 5 * time.Minute
)

// LastMessage is the per-user latest-activity summary used to hydrate
// directory responses.
type LastMessage struct {
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Store is the presence interface the hub and handlers depend on.
type Store interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	OnlineSet(ctx context.Context, userIDs []string) (map[string]bool, error)
	RecordMessage(ctx context.Context, userID, content string, at time.Time) error
	GetLastMessage(ctx context.Context, userID string) (LastMessage, bool, error)
}

// NewStore connects to Redis and falls back to an in-memory store when the
// connection cannot be established.
func NewStore(addr string) Store {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("presence: redis unavailable, using in-memory store: %v", err)
		_ = client.Close()
		return NewMemoryStore()
	}
	log.Printf("presence: redis connected addr=%s", addr)
	return &RedisStore{client: client}
}

// RedisStore is the Redis implementation of Store.
type RedisStore struct {
	client *redis.Client
}

func (s *RedisStore) MarkOnline(ctx context.Context, userID string) error {
	if err := s.client.Set(ctx, onlineKeyPrefix+userID, "1", onlineTTL).Err(); err != nil {
		return fmt.Errorf("presence set: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkOffline(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, onlineKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("presence del: %w", err)
	}
	return nil
}

func (s *RedisStore) OnlineSet(ctx context.Context, userIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, onlineKeyPrefix+id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence mget: %w", err)
	}
	for i, id := range userIDs {
		result[id] = vals[i] != nil
	}
	return result, nil
}

func (s *RedisStore) RecordMessage(ctx context.Context, userID, content string, at time.Time) error {
	data, err := json.Marshal(LastMessage{Content: content, At: at})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, lastKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("presence last set: %w", err)
	}
	return nil
}

func (s *RedisStore) GetLastMessage(ctx context.Context, userID string) (LastMessage, bool, error) {
	data, err := s.client.Get(ctx, lastKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return LastMessage{}, false, nil
		}
		return LastMessage{}, false, fmt.Errorf("presence last get: %w", err)
	}
	var last LastMessage
	if err := json.Unmarshal(data, &last); err != nil {
		return LastMessage{}, false, err
	}
	return last, true, nil
}

// MemoryStore is a process-local Store used when Redis is down and in
// tests.
type MemoryStore struct {
	mu     sync.RWMutex
	online map[string]bool
	last   map[string]LastMessage
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{online: map[string]bool{}, last: map[string]LastMessage{}}
}

func (s *MemoryStore) MarkOnline(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.online[userID] = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) MarkOffline(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.online, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) OnlineSet(ctx context.Context, userIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		result[id] = s.online[id]
	}
	return result, nil
}

func (s *MemoryStore) RecordMessage(ctx context.Context, userID, content string, at time.Time) error {
	s.mu.Lock()
	s.last[userID] = LastMessage{Content: content, At: at}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetLastMessage(ctx context.Context, userID string) (LastMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.last[userID]
	return last, ok, nil
}
