package sharedhash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetFieldMissing(t *testing.T) {
	h := NewMemory()
	_, ok, err := h.GetField(context.Background(), "limits", "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySetThenGetField(t *testing.T) {
	h := NewMemory()
	ctx := context.Background()

	require.NoError(t, h.SetField(ctx, "limits", "user:1", "0##1000"))

	v, ok, err := h.GetField(ctx, "limits", "user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0##1000", v)
}

func TestMemoryFieldsAreScopedByHashName(t *testing.T) {
	h := NewMemory()
	ctx := context.Background()

	require.NoError(t, h.SetField(ctx, "api", "user:1", "1##1000"))
	_, ok, err := h.GetField(ctx, "auth", "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnavailableReturnsConfiguredError(t *testing.T) {
	sentinel := errors.New("boom")
	u := &Unavailable{Err: sentinel}

	_, _, err := u.GetField(context.Background(), "h", "f")
	assert.ErrorIs(t, err, sentinel)

	err = u.SetField(context.Background(), "h", "f", "v")
	assert.ErrorIs(t, err, sentinel)
}
