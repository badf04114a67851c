package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	boom := errors.New("dial tcp: connection refused")
	calls := 0
	failing := func() error { calls++; return boom }

	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, CBOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(failing), ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open breaker must not call through")

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	// failed probe re-opens
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, CBOpen, cb.State())

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	boom := errors.New("boom")

	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return boom })

	assert.Equal(t, CBClosed, cb.State())
}
