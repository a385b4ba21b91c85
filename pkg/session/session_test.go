package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	sess, err := s.Create(ctx, "Alice", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, sess.ID), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.Create(context.Background(), "Bob", 0)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = s.Get(context.Background(), sess.ID)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestRedisStore runs against a live server when MARKETPLACE_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MARKETPLACE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MARKETPLACE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisStore(client, time.Minute))
}
