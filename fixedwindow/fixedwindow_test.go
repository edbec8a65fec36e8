package fixedwindow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
)

func newSpec(t *testing.T, r int64, d time.Duration) ratevalve.RateSpec {
	t.Helper()
	spec, err := ratevalve.NewRateSpec(r, d)
	require.NoError(t, err)
	return spec
}

// TestWindowAdmitsExactlyR is the exact-count case: within a single
// window, exactly R requests admit and the (R+1)th rejects.
func TestWindowAdmitsExactlyR(t *testing.T) {
	start := time.Unix(0, 0).Truncate(time.Minute)
	mock := clock.NewMock(start)
	spec := newSpec(t, 5, time.Minute)
	store, err := New(spec, WithClock(mock))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d, err := store.Consume(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Truef(t, d.Allowed, "request %d should admit", i+1)
	}

	d, err := store.Consume(ctx, "u1", 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

// TestNewWindowResetsCounter crosses a window boundary and confirms the
// counter resets to zero rather than carrying over.
func TestNewWindowResetsCounter(t *testing.T) {
	start := time.Unix(0, 0).Truncate(time.Minute)
	mock := clock.NewMock(start)
	spec := newSpec(t, 2, time.Minute)
	store, err := New(spec, WithClock(mock))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.True(t, mustAllow(t, store, ctx, "u1"))
	require.True(t, mustAllow(t, store, ctx, "u1"))
	assert.False(t, mustAllow(t, store, ctx, "u1"))

	mock.Advance(time.Minute)
	assert.True(t, mustAllow(t, store, ctx, "u1"))
}

func TestResetReportsWindowEnd(t *testing.T) {
	start := time.Unix(0, 0).Truncate(time.Minute)
	mock := clock.NewMock(start)
	spec := newSpec(t, 5, time.Minute)
	store, err := New(spec, WithClock(mock))
	require.NoError(t, err)
	defer store.Close()

	d, err := store.Consume(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.NotNil(t, d.Reset)
	assert.Equal(t, start.Add(time.Minute), *d.Reset)
}

func mustAllow(t *testing.T, store *Store, ctx context.Context, key string) bool {
	t.Helper()
	d, err := store.Consume(ctx, key, 1)
	require.NoError(t, err)
	return d.Allowed
}
