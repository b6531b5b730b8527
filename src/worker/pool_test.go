package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestPoolExecutesTask(t *testing.T) {
	rdb, _ := testRedis(t)
	done := make(chan Task, 1)
	pool := NewPool(rdb, func(_ context.Context, task Task) error {
		done <- task
		return nil
	}, fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Run(ctx)

	require.NoError(t, pool.Enqueue(ctx, Task{Kind: TaskDispatch, ReservationID: 7}))

	select {
	case task := <-done:
		assert.Equal(t, uint(7), task.ReservationID)
	case <-time.After(2 * time.Second):
		t.Fatal("task never executed")
	}
}

func TestPoolSpillsToBacklogWhenFull(t *testing.T) {
	rdb, mr := testRedis(t)
	// workers never started, the channel fills up
	pool := NewPool(rdb, func(context.Context, Task) error { return nil }, fastRetry())

	ctx := context.Background()
	for i := 0; i < cap(pool.queue)+3; i++ {
		require.NoError(t, pool.Enqueue(ctx, Task{Kind: TaskDispatch, ReservationID: uint(i)}))
	}

	spilled, err := mr.List("hbs:dispatch:backlog")
	require.NoError(t, err)
	assert.Len(t, spilled, 3)
}

func TestPoolDrainsBacklog(t *testing.T) {
	rdb, _ := testRedis(t)
	var handled atomic.Int32
	pool := NewPool(rdb, func(context.Context, Task) error {
		handled.Add(1)
		return nil
	}, fastRetry())
	pool.poll = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// entry already sitting in the backlog before the pool starts
	body := []byte(`{"kind":"dispatch","reservation_id":5,"notification_type":"invitation"}`)
	require.NoError(t, rdb.RPush(ctx, "hbs:dispatch:backlog", body).Err())

	pool.Run(ctx)

	assert.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPoolDeadLettersExhaustedTask(t *testing.T) {
	rdb, mr := testRedis(t)
	var attempts atomic.Int32
	pool := NewPool(rdb, func(context.Context, Task) error {
		attempts.Add(1)
		return assert.AnError
	}, fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Run(ctx)

	require.NoError(t, pool.Enqueue(ctx, Task{Kind: TaskPaymentEvent}))

	assert.Eventually(t, func() bool {
		letters, err := mr.List("hbs:dispatch:dead")
		return err == nil && len(letters) == 1
	}, 2*time.Second, 10*time.Millisecond)
	// initial attempt plus one retry
	assert.Equal(t, int32(2), attempts.Load())

	tasks, err := pool.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskPaymentEvent, tasks[0].Kind)
}

func TestRetryPolicyBackoffClamped(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 4 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// clamped at the maximum from here on
	assert.Equal(t, 4*time.Second, policy.NextDelay(4))
	assert.Equal(t, 4*time.Second, policy.NextDelay(10))
}

func TestRetryPolicyJitterStaysInBounds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, BackoffFactor: 2, Jitter: 0.2}
	for i := 0; i < 50; i++ {
		d := policy.NextDelay(1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}
