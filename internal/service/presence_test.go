package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newPresenceForTest(t *testing.T) (*RedisPresenceTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPresenceTracker(client, "presence", 2*time.Minute), mr
}

func TestPresenceTouchAndOnline(t *testing.T) {
	tracker, _ := newPresenceForTest(t)
	ctx := context.Background()

	online, err := tracker.Online(ctx, "u1")
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if online {
		t.Fatal("expected offline before touch")
	}

	if err := tracker.Touch(ctx, "u1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	online, err = tracker.Online(ctx, "u1")
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if !online {
		t.Fatal("expected online after touch")
	}
}

func TestPresenceExpires(t *testing.T) {
	tracker, mr := newPresenceForTest(t)
	ctx := context.Background()

	if err := tracker.Touch(ctx, "u1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	mr.FastForward(3 * time.Minute)

	online, err := tracker.Online(ctx, "u1")
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if online {
		t.Fatal("expected marker to expire")
	}
}

func TestPresenceActiveUsers(t *testing.T) {
	tracker, _ := newPresenceForTest(t)
	ctx := context.Background()

	for _, userID := range []string{"u1", "u2", "u3"} {
		if err := tracker.Touch(ctx, userID); err != nil {
			t.Fatalf("touch %s: %v", userID, err)
		}
	}
	users, err := tracker.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active users: %v", err)
	}
	sort.Strings(users)
	if len(users) != 3 || users[0] != "u1" || users[2] != "u3" {
		t.Fatalf("unexpected active users %v", users)
	}
}
