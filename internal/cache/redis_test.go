package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)

	client, err := cache.NewClient(context.Background(), server.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "key", "value", 0).Err())
	stored, err := server.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", stored)
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	client, err := cache.NewClient(context.Background(), addr, 200*time.Millisecond)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to ping redis")
}
