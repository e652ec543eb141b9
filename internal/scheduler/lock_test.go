package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	redis := &fakeRedis{values: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(redis, "cc:scheduler:cycle", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(redis, "cc:scheduler:cycle", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second worker must not acquire a held lock")

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be free after release")
}

func TestRedisLockReleaseIgnoresForeignOwner(t *testing.T) {
	redis := &fakeRedis{values: map[string]string{}}
	ctx := context.Background()

	lock, err := NewRedisLock(redis, "cc:scheduler:cycle", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(ctx)
	require.NoError(t, err)

	// Simulate TTL expiry plus takeover by another worker.
	redis.values["cc:scheduler:cycle"] = "someone-else"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", redis.values["cc:scheduler:cycle"])
}
