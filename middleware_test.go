package ratevalve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	decision Decision
	err      error
}

func (f *fakeStore) Consume(context.Context, string, int64) (Decision, error) {
	return f.decision, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func identifyRemote(r *http.Request) (string, error) { return r.RemoteAddr, nil }

func TestWrapAdmits(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	store := &fakeStore{decision: Decision{Allowed: true, Remaining: 4}}

	h := Wrap(okHandler(), identifyRemote, spec, store)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get(HeaderRemaining))
}

func TestWrapRejects(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	store := &fakeStore{decision: Decision{Allowed: false, Remaining: 0}}

	h := Wrap(okHandler(), identifyRemote, spec, store)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3.4")
}

func TestWrapMissingIdentifierIsBadRequest(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	store := &fakeStore{decision: Decision{Allowed: true}}

	identify := func(r *http.Request) (string, error) { return "", errors.New("no key") }
	h := Wrap(okHandler(), identify, spec, store)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWrapFailOpenAdmitsOnUnavailable(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	store := &fakeStore{decision: Decision{Remaining: RemainingUnknown}, err: ErrStoreUnavailable}

	h := Wrap(okHandler(), identifyRemote, spec, store, WithFailurePolicy(FailOpen))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unknown", w.Header().Get(HeaderRemaining))
}

func TestWrapFailClosedRejectsOnUnavailable(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	store := &fakeStore{decision: Decision{Remaining: RemainingUnknown}, err: ErrStoreUnavailable}

	h := Wrap(okHandler(), identifyRemote, spec, store, WithFailurePolicy(FailClosed))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestWrapDefaultCostIsOne(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	var gotCost int64
	store := &costCapturingStore{onConsume: func(cost int64) { gotCost = cost }}

	h := Wrap(okHandler(), identifyRemote, spec, store)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, int64(1), gotCost)
}

func TestWrapCustomCost(t *testing.T) {
	spec, err := NewRateSpec(5, time.Minute)
	require.NoError(t, err)
	var gotCost int64
	store := &costCapturingStore{onConsume: func(cost int64) { gotCost = cost }}

	h := Wrap(okHandler(), identifyRemote, spec, store, WithCost(3))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, int64(3), gotCost)
}

type costCapturingStore struct {
	onConsume func(cost int64)
}

func (c *costCapturingStore) Consume(_ context.Context, _ string, cost int64) (Decision, error) {
	c.onConsume(cost)
	return Decision{Allowed: true}, nil
}
