package kvstorage_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jrsteele09/cartcash/sessions/kvstorage"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s kvstorage.Storage, key string) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.GetItem(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetItem(ctx, key, `{"version":1}`))
	v, ok, err := s.GetItem(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"version":1}`, v)

	require.NoError(t, s.SetItem(ctx, key, "replaced"))
	v, _, err = s.GetItem(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "replaced", v)

	require.NoError(t, s.RemoveItem(ctx, key))
	require.NoError(t, s.RemoveItem(ctx, key))
	_, ok, err = s.GetItem(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStorage(t, kvstorage.NewMemory(), "cartcash_sessions")
}

func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := kvstorage.OpenRedis(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseStorage(t, kvstorage.NewRedis(client, "cartcash-test"), uuid.NewString())
}
