package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsOnce(t *testing.T) {
	a := assert.New(t)

	calls := 0
	err := Policy{MaxAttempts: 3}.Do(context.Background(), func() (bool, error) {
		calls++
		return true, nil
	})
	a.NoError(err)
	a.Equal(1, calls)
}

func TestDoRetriesUntilDone(t *testing.T) {
	a := assert.New(t)

	calls := 0
	err := Policy{MaxAttempts: 5, Backoff: time.Millisecond}.Do(context.Background(), func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	a.NoError(err)
	a.Equal(3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	a := assert.New(t)

	calls := 0
	err := Policy{MaxAttempts: 4, Backoff: time.Millisecond}.Do(context.Background(), func() (bool, error) {
		calls++
		return false, nil
	})
	a.ErrorIs(err, ErrAttemptsExhausted)
	a.Equal(4, calls)
}

func TestDoStopsOnError(t *testing.T) {
	a := assert.New(t)

	boom := errors.New("mdstat unreadable")
	calls := 0
	err := Policy{MaxAttempts: 4}.Do(context.Background(), func() (bool, error) {
		calls++
		return false, boom
	})
	a.ErrorIs(err, boom)
	a.Equal(1, calls)
}

func TestDoHonorsContext(t *testing.T) {
	a := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Policy{MaxAttempts: 10, Backoff: time.Minute}.Do(ctx, func() (bool, error) {
		return false, nil
	})
	a.ErrorIs(err, context.Canceled)
}

func TestDoZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func() (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 1, calls)
}
