package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil_FirstTrySuccessSkipsWaiting(t *testing.T) {
	calls := 0
	start := time.Now()
	v, err := pollUntil(context.Background(), 5, time.Hour, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollUntil_ContextCancelStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := pollUntil(ctx, 10, time.Hour, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("not yet")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_ExhaustionWrapsLastError(t *testing.T) {
	calls := 0
	_, err := pollUntil(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("still missing")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultNotAvailable)
	assert.Contains(t, err.Error(), "still missing")
	assert.Equal(t, 3, calls)
}
