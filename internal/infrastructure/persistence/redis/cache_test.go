package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/aau-confessions/confession-hub/pkg/circuitbreaker"
	"github.com/aau-confessions/confession-hub/pkg/retry"
)

func TestIsFailure(t *testing.T) {
	assert.False(t, IsFailure(nil))
	assert.False(t, IsFailure(ErrCacheMiss))
	assert.False(t, IsFailure(fmt.Errorf("%w: bad json", ErrCacheSerialization)))
	assert.True(t, IsFailure(errors.New("dial tcp: connection refused")))
}

func TestRetryableRead(t *testing.T) {
	assert.True(t, retryableRead(errors.New("i/o timeout")))
	assert.False(t, retryableRead(ErrCacheMiss))
	assert.False(t, retryableRead(circuitbreaker.ErrCircuitOpen))
	assert.False(t, retryableRead(context.Canceled))
}

func TestCache_RetriedReadsStopAtOpenCircuit(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	cb := circuitbreaker.CacheBreaker(nil, IsFailure)
	cache := NewCacheFromClient(client).
		WithBreaker(cb).
		WithRetrier(retry.CacheRetrier())
	ctx := context.Background()

	var dest map[string]any
	err := cache.Get(ctx, "ranking:board", &dest)
	assert.Error(t, err)
	assert.False(t, circuitbreaker.IsRejected(err))
	assert.Equal(t, 2, cb.Counts().TotalFailures, "one read, two attempts")

	// third failure opens the circuit, the retry is rejected and not repeated
	err = cache.Get(ctx, "ranking:board", &dest)
	assert.True(t, circuitbreaker.IsRejected(err))
	assert.Equal(t, 3, cb.Counts().TotalFailures)
	assert.Equal(t, 1, cb.Counts().Rejected)
}

func TestCache_BreakerFailsFast(t *testing.T) {
	// nothing listens on port 1
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	cb := circuitbreaker.CacheBreaker(nil, IsFailure)
	cache := NewCacheFromClient(client).WithBreaker(cb)
	ctx := context.Background()

	var dest map[string]any
	for i := 0; i < 3; i++ {
		err := cache.Get(ctx, "ranking:probe", &dest)
		assert.Error(t, err)
		assert.False(t, circuitbreaker.IsRejected(err))
	}

	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
	assert.ErrorIs(t, cache.Set(ctx, "ranking:probe", map[string]int{"a": 1}, time.Minute), circuitbreaker.ErrCircuitOpen)

	_, err := NewLeaderboardCache(cache, 0).Invalidate(ctx)
	assert.True(t, circuitbreaker.IsRejected(err))

	// key validation never reaches the breaker
	assert.ErrorIs(t, cache.Get(ctx, "", &dest), ErrCacheKeyEmpty)
}
