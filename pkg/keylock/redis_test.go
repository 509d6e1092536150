package keylock

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLockerBlocksSecondHolder(t *testing.T) {
	client := openTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second)
	key := "test:" + uuid.NewString()

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan func(), 1)
	go func() {
		next, err := l.Lock(context.Background(), key)
		if assert.NoError(t, err) {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock taken while still held")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()
	select {
	case next := <-acquired:
		next()
	case <-time.After(2 * time.Second):
		t.Fatal("lock not handed over after release")
	}
}

func TestRedisLockerExpiresAbandonedLock(t *testing.T) {
	client := openTestRedis(t)
	l := NewRedisLocker(client, 200*time.Millisecond)
	key := "test:" + uuid.NewString()

	_, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerLateReleaseKeepsNewHolder(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	l := NewRedisLocker(client, 150*time.Millisecond)
	key := "test:" + uuid.NewString()

	first, err := l.Lock(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	l.ttl = 5 * time.Second
	second, err := l.Lock(waitCtx, key)
	require.NoError(t, err)

	first()
	n, err := client.Exists(ctx, l.prefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired holder must not release the new lock")

	second()
	n, err = client.Exists(ctx, l.prefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
