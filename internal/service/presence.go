package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceTracker keeps a short-lived liveness marker per worker so the
// staleness sweep can skip recently-seen sessions without touching the
// database.
type PresenceTracker interface {
	Touch(ctx context.Context, userID string) error
	Online(ctx context.Context, userID string) (bool, error)
	// ActiveUsers returns the user ids with a live marker.
	ActiveUsers(ctx context.Context) ([]string, error)
}

type RedisPresenceTracker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisPresenceTracker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisPresenceTracker {
	if prefix == "" {
		prefix = "presence"
	}
	return &RedisPresenceTracker{client: client, prefix: prefix, ttl: ttl}
}

func (t *RedisPresenceTracker) key(userID string) string {
	return t.prefix + ":" + userID
}

func (t *RedisPresenceTracker) Touch(ctx context.Context, userID string) error {
	return t.client.Set(ctx, t.key(userID), "1", t.ttl).Err()
}

func (t *RedisPresenceTracker) Online(ctx context.Context, userID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *RedisPresenceTracker) ActiveUsers(ctx context.Context) ([]string, error) {
	var users []string
	var cursor uint64
	pattern := t.prefix + ":*"
	for {
		keys, next, err := t.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			users = append(users, strings.TrimPrefix(key, t.prefix+":"))
		}
		if next == 0 {
			return users, nil
		}
		cursor = next
	}
}
