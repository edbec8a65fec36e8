//go:build integration

package sharedhash

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisSetAndGetField(t *testing.T) {
	h, err := DialRedis(context.Background(), redisAddr())
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	require.NoError(t, h.SetField(ctx, "ratevalve-test", "user:1", "2##123456"))

	v, ok, err := h.GetField(ctx, "ratevalve-test", "user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2##123456", v)
}

func TestRedisMissingFieldNotFound(t *testing.T) {
	h, err := DialRedis(context.Background(), redisAddr())
	require.NoError(t, err)
	defer h.Close()

	_, ok, err := h.GetField(context.Background(), "ratevalve-test", "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
