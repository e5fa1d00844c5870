package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"credvault/internal/audit"
)

const redisAuditKey = "credvault:audit"

// RedisStore keeps the audit trail in a Redis list. LPUSH puts the newest
// entry at the head, so a plain LRANGE is already newest-first.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := s.client.LPush(ctx, redisAuditKey, payload).Err(); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]audit.Entry, error) {
	raw, err := s.client.LRange(ctx, redisAuditKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]audit.Entry, 0, len(raw))
	for _, item := range raw {
		var entry audit.Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}
