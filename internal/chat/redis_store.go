package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore 每本书一个 list，RPUSH 追加保证顺序，多实例共享
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(bookID string) string {
	return s.prefix + bookID
}

func (s *RedisStore) Append(ctx context.Context, bookID string, turn Turn) error {
	if err := validBookID(bookID); err != nil {
		return err
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(bookID), data).Err(); err != nil {
		return fmt.Errorf("append turn for %s: %w", bookID, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, bookID string) ([]Turn, error) {
	if err := validBookID(bookID); err != nil {
		return nil, err
	}
	items, err := s.client.LRange(ctx, s.key(bookID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", bookID, err)
	}

	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Clear(ctx context.Context, bookID string) error {
	if err := validBookID(bookID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(bookID)).Err(); err != nil {
		return fmt.Errorf("clear history for %s: %w", bookID, err)
	}
	return nil
}
