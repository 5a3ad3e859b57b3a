package cierrors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesKindAndSeverity(t *testing.T) {
	err := New(CodeStoreLockBusy, "lock busy", nil)
	assert.Equal(t, KindStoreBusy, err.Kind)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
}

func TestNew_StoreInvariantIsFatal(t *testing.T) {
	err := New(CodeStoreDanglingEdge, "dangling edge", nil)
	assert.Equal(t, KindStoreInvariant, err.Kind)
	assert.True(t, IsFatal(err))
	assert.False(t, err.Retryable)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeIOReadFailed, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := NotFound("symbol missing")
	b := NotFound("different message, same code")
	assert.True(t, errors.Is(a, b))
}

func TestWithDetail_Chains(t *testing.T) {
	err := InvalidArgument("bad query").WithDetail("field", "query")
	assert.Equal(t, "query", err.Details["field"])
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	err := Retry(context.Background(), cfg, func() error {
		return errors.New("always fails")
	})
	assert.Error(t, err)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultRetryConfig()
	err := Retry(ctx, cfg, func() error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("model", 2, time.Minute)
	_ = cb.Execute(func() error { return errors.New("fail") })
	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_RecoversAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("reranker", 1, time.Millisecond)
	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, CircuitOpen, cb.State())

	time.Sleep(5 * time.Millisecond)
	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}
