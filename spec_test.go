package ratevalve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateSpecRejectsInvalidInput(t *testing.T) {
	_, err := NewRateSpec(0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidRateSpec)

	_, err = NewRateSpec(5, 0)
	assert.ErrorIs(t, err, ErrInvalidRateSpec)
}

func TestNewRateSpecAccepts(t *testing.T) {
	spec, err := NewRateSpec(6, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(6), spec.R)
	assert.Equal(t, time.Minute, spec.D)
}

func TestPerSecond(t *testing.T) {
	spec, err := NewRateSpec(6, time.Minute)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, spec.PerSecond(), 1e-9)
}

func TestString(t *testing.T) {
	spec, err := NewRateSpec(6, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "6/1m0s", spec.String())
}
