package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Calls are rejected without running the function.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	require.Error(t, cb.Call(func() error { return errBoom }))
	require.Error(t, cb.Call(func() error { return errBoom }))
	require.NoError(t, cb.Call(func() error { return nil }))
	require.Error(t, cb.Call(func() error { return errBoom }))
	require.Error(t, cb.Call(func() error { return errBoom }))

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)

	require.Error(t, cb.Call(func() error { return errBoom }))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(30 * time.Millisecond)

	// The first call after the timeout probes and closes the breaker.
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)

	require.Error(t, cb.Call(func() error { return errBoom }))
	time.Sleep(30 * time.Millisecond)

	err := cb.Call(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	// And the reopened breaker rejects again immediately.
	err = cb.Call(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
