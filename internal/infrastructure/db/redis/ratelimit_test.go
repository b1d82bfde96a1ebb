package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFixedWindowLimiter(client, limit, window), mr
}

func TestFixedWindowLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "auth:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d should be allowed", i+1)
	}

	ok, retry, err := l.Allow(ctx, "auth:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "auth:a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = l.Allow(ctx, "auth:b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, _ = l.Allow(ctx, "auth:a")
	assert.False(t, ok)
}

func TestFixedWindowLimiter_WindowResets(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, _, _ := l.Allow(ctx, "auth:a")
	require.True(t, ok)
	ok, _, _ = l.Allow(ctx, "auth:a")
	require.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, _, err := l.Allow(ctx, "auth:a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixedWindowLimiter_SetsExpiryOnFirstHit(t *testing.T) {
	l, mr := newTestLimiter(t, 5, 30*time.Second)

	_, _, err := l.Allow(context.Background(), "auth:a")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:auth:a"))
}

func TestFixedWindowLimiter_RedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()

	_, _, err := l.Allow(context.Background(), "auth:a")
	assert.Error(t, err)
}

func TestNewFixedWindowLimiter_Defaults(t *testing.T) {
	l := NewFixedWindowLimiter(nil, 0, 0)
	assert.Equal(t, int64(defaultLimit), l.limit)
	assert.Equal(t, defaultWindow, l.window)
}
