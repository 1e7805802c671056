package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/sitewatch/internal/domain"
)

const (
	statusKeyPrefix     = "sitewatch:status:"
	preferenceKeyPrefix = "sitewatch:pref:"
	// NotificationChannel carries JSON encoded notifications.
	NotificationChannel = "sitewatch:notifications"

	statusTTL = 24 * time.Hour
)

// RedisStore handles interactions with Redis for row statuses, preferences and fan-out.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SetStatus stores a row status with a TTL so abandoned sites don't live forever.
func (s *RedisStore) SetStatus(ctx context.Context, siteID string, state domain.TrackState) error {
	return s.client.Set(ctx, statusKeyPrefix+siteID, string(state), statusTTL).Err()
}

func (s *RedisStore) GetStatus(ctx context.Context, siteID string) (domain.TrackState, error) {
	val, err := s.client.Get(ctx, statusKeyPrefix+siteID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.TrackState(val), nil
}

func (s *RedisStore) DeleteStatus(ctx context.Context, siteID string) error {
	return s.client.Del(ctx, statusKeyPrefix+siteID).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, preferenceKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, preferenceKeyPrefix+key, value, 0).Err()
}

// Publish sends a notification on NotificationChannel.
func (s *RedisStore) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return s.client.Publish(ctx, NotificationChannel, payload).Err()
}
