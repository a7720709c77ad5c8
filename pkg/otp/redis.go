package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// verifyScript deletes the key only when the stored code matches.
var verifyScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(phone), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *RedisStore) Verify(ctx context.Context, phone, code string) (bool, error) {
	n, err := verifyScript.Run(ctx, s.client, []string{key(phone)}, code).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify otp: %w", err)
	}
	return n == 1, nil
}
