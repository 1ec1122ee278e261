package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		cond    func(calls int) (bool, error)
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "true on first check",
			cond:    func(int) (bool, error) { return true, nil },
			timeout: 50 * time.Millisecond,
		},
		{
			name:    "true after a few polls",
			cond:    func(calls int) (bool, error) { return calls >= 3, nil },
			timeout: time.Second,
		},
		{
			name:    "never true",
			cond:    func(int) (bool, error) { return false, nil },
			timeout: 20 * time.Millisecond,
			wantErr: ErrWaitTimeout,
		},
		{
			name:    "condition error stops polling",
			cond:    func(int) (bool, error) { return false, boom },
			timeout: time.Second,
			wantErr: boom,
		},
		{
			name:    "zero timeout checks once",
			cond:    func(calls int) (bool, error) { return calls == 1, nil },
			timeout: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Until(context.Background(), tt.timeout, 5*time.Millisecond, func(context.Context) (bool, error) {
				calls++
				return tt.cond(calls)
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUntil_ObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Until(ctx, 10*time.Second, 5*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUntil_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Until(ctx, time.Second, time.Millisecond, func(context.Context) (bool, error) {
		called = true
		return true, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
