//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/storage/storagetest"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	return url
}

func TestRedisStore(t *testing.T) {
	url := startRedis(t)

	storagetest.Run(t, func(t *testing.T) storage.Driver {
		logger, _ := test.NewNullLogger()
		store := &Store{}
		require.NoError(t, store.Init(logger, map[string]string{"url": url}))
		require.NoError(t, store.client.FlushAll(context.Background()).Err())
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestRedisStoreUnreadable(t *testing.T) {
	url := startRedis(t)

	storagetest.RunUnreadable(t, func(t *testing.T) storage.Driver {
		logger, _ := test.NewNullLogger()
		store := &Store{}
		require.NoError(t, store.Init(logger, map[string]string{"url": url}))
		require.NoError(t, store.client.FlushAll(context.Background()).Err())
		t.Cleanup(func() { _ = store.Close() })
		return store
	}, func(t *testing.T, driver storage.Driver, householdID string) {
		store := driver.(*Store)
		require.NoError(t, store.client.Set(context.Background(), store.key(householdID), "garbage", 0).Err())
	})
}

func TestCorruptValueIsTreatedAsMissing(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	logger, _ := test.NewNullLogger()
	store := &Store{}
	require.NoError(t, store.Init(logger, map[string]string{"url": url, "prefix": "test:"}))
	defer store.Close()

	require.NoError(t, store.client.Set(ctx, "test:home", "garbage", 0).Err())

	_, err := store.Load(ctx, "home")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
