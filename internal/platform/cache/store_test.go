package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Minute), mr
}

func TestFetchJSONPopulatesCache(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var got []string
	require.NoError(t, store.FetchJSON(ctx, "k", &got, loader))
	require.Equal(t, []string{"a", "b"}, got)
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists("k"))

	// Second fetch is served from Redis.
	var again []string
	require.NoError(t, store.FetchJSON(ctx, "k", &again, loader))
	require.Equal(t, []string{"a", "b"}, again)
	require.Equal(t, 1, calls)
}

func TestFetchJSONAfterInvalidate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	var v int
	require.NoError(t, store.FetchJSON(ctx, "counter", &v, loader))
	require.Equal(t, 1, v)

	require.NoError(t, store.Invalidate(ctx, "counter"))

	require.NoError(t, store.FetchJSON(ctx, "counter", &v, loader))
	require.Equal(t, 2, v)
}

func TestFetchJSONWithoutClient(t *testing.T) {
	var store *Store
	var got string
	err := store.FetchJSON(context.Background(), "k", &got, func(ctx context.Context) (interface{}, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	require.Equal(t, "direct", got)

	require.NoError(t, store.Invalidate(context.Background(), "k"))
}

func TestFetchJSONRequiresLoader(t *testing.T) {
	store, _ := newTestStore(t)
	var got string
	require.Error(t, store.FetchJSON(context.Background(), "k", &got, nil))
}
