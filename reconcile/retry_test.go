package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/taskvault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errEngine = errors.New("disk full")

func storeErr() error {
	return storage.StoreFailure("task", "save", "p1", errEngine)
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return storeErr()
		}
		return nil
	}, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return storeErr()
	}, 3, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errEngine, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", storage.Validation("task", "save", errors.New("bad"))},
		{"not found", storage.NotFound("task", "delete", "p1", "t1")},
		{"conversion", storage.Conversion("task", "load", "p1", errors.New("garbage"))},
		{"foreign", errors.New("plain")},
		{"bad partition name", storage.Validation("document", "open", errors.New("invalid partition name"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), func() error {
				attempts++
				return tt.err
			}, 5, time.Millisecond)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return storeErr()
	}, 5, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoff_Backoff(t *testing.T) {
	var stamps []time.Time
	_ = RetryWithBackoff(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		return storeErr()
	}, 3, 20*time.Millisecond)
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}
