package redislock_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/sifen-dte/internal/infrastructure/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock_AcquireRelease(t *testing.T) {
	var l redislock.LocalLock
	ctx := context.Background()

	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, l.Held())

	// renovar en el siguiente ciclo
	ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx))
	assert.False(t, l.Held())
}

func TestLock_RedisNoDisponible(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	l := redislock.New(rdb, "", time.Minute)
	ok, err := l.Acquire(context.Background())
	assert.Error(t, err, "sin servidor Redis debe fallar")
	assert.False(t, ok)
}

func TestConnect_URLInvalida(t *testing.T) {
	_, err := redislock.Connect(context.Background(), "no-es-una-url")
	assert.Error(t, err)
}
