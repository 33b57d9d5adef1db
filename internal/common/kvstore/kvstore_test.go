package kvstore

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/internal/common/db"
	"github.com/tripdesk/internal/common/logger"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "token", "abc"))
	require.NoError(t, store.Set(ctx, "token", "def"))

	value, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "def", value)

	require.NoError(t, store.Delete(ctx, "token"))
	_, found, err = store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "token"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedis(client))
}

func TestRedisKeysArePrefixed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, NewRedis(client).Set(context.Background(), "zone", "4"))

	got, err := mr.Get("tripdesk:kv:zone")
	require.NoError(t, err)
	assert.Equal(t, "4", got)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, dsn, logger.Discard())
	require.NoError(t, err)
	defer database.Close()

	store, err := NewPostgres(ctx, database)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestScopedPrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	scoped := NewScoped(mem, "user-7")

	require.NoError(t, scoped.Set(ctx, "columnOrder", "[]"))

	_, found, _ := mem.Get(ctx, "columnOrder")
	assert.False(t, found)

	v, found, _ := mem.Get(ctx, "user-7:columnOrder")
	assert.True(t, found)
	assert.Equal(t, "[]", v)

	v, found, _ = scoped.Get(ctx, "columnOrder")
	assert.True(t, found)
	assert.Equal(t, "[]", v)
}
