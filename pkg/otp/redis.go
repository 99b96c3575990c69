package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyvale/cloudpoints/pkg/models"
)

const redisKeyPrefix = "otp:"

// RedisStore is the multi-instance CredentialStore. Expiry is delegated to
// Redis key TTLs, so expired credentials vanish without a sweeper.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Make sure we conform to the interface
var _ CredentialStore = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, accountID string) (*models.Credential, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+accountID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential from redis: %w", err)
	}

	var credential models.Credential
	if err := json.Unmarshal(payload, &credential); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &credential, nil
}

func (s *RedisStore) Put(ctx context.Context, credential *models.Credential) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	ttl := time.Until(credential.ExpiresAt)
	if ttl <= 0 {
		// Already expired; storing it would be indistinguishable from absent.
		return s.Delete(ctx, credential.AccountID)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+credential.AccountID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store credential in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+accountID).Err(); err != nil {
		return fmt.Errorf("failed to delete credential from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan credentials in redis: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
