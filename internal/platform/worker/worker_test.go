package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
	}{
		{name: "sequential", n: 5, limit: 1},
		{name: "bounded", n: 20, limit: 4},
		{name: "zero limit falls back to one", n: 3, limit: 0},
		{name: "no work", n: 0, limit: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu       sync.Mutex
				seen     = make(map[int]int)
				inFlight int32
				peak     int32
			)

			ForEach(context.Background(), tt.n, tt.limit, func(_ context.Context, i int) {
				cur := atomic.AddInt32(&inFlight, 1)
				defer atomic.AddInt32(&inFlight, -1)

				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}

				time.Sleep(time.Millisecond)

				mu.Lock()
				seen[i]++
				mu.Unlock()
			})

			require.Len(t, seen, tt.n)

			for i := 0; i < tt.n; i++ {
				assert.Equal(t, 1, seen[i], "index %d", i)
			}

			limit := tt.limit
			if limit < 1 {
				limit = 1
			}

			assert.LessOrEqual(t, int(peak), limit)
		})
	}
}

func TestGuard(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("returns fn error", func(t *testing.T) {
		err := Guard(nil, "op", func() error { return errBoom })
		require.ErrorIs(t, err, errBoom)
	})

	t.Run("converts panic", func(t *testing.T) {
		err := Guard(nil, "predict", func() error { panic("kaboom") })
		require.ErrorIs(t, err, ErrPanic)
		assert.Contains(t, err.Error(), "predict")
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("nil on success", func(t *testing.T) {
		require.NoError(t, Guard(nil, "op", func() error { return nil }))
	})
}

func TestRunWithTimeout(t *testing.T) {
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = RunWithTimeout(context.Background(), 0, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.False(t, ok)

		return nil
	})
	require.NoError(t, err)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
