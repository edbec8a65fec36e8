//go:build integration

package sharedhash

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memcachedAddr() string {
	if addr := os.Getenv("MEMCACHED_ADDR"); addr != "" {
		return addr
	}
	return "localhost:11211"
}

func TestMemcachedSetAndGetField(t *testing.T) {
	h, err := DialMemcached(memcachedAddr())
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	require.NoError(t, h.SetField(ctx, "ratevalve-test", "user:1", "2##123456"))

	v, ok, err := h.GetField(ctx, "ratevalve-test", "user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2##123456", v)
}
