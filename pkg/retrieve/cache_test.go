package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedRetriever(t *testing.T) {
	caches := []struct {
		name     string
		newCache func(t *testing.T) Cache
	}{
		{
			name:     "lru",
			newCache: func(*testing.T) Cache { return NewLRUCache(16, time.Minute) },
		},
		{
			name: "redis",
			newCache: func(t *testing.T) Cache {
				_, client := newRedis(t)
				return NewRedisCache(client, "", time.Minute)
			},
		},
	}

	for _, tc := range caches {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubRetriever{
				method: eval.MethodSPARQL,
				answers: map[string][]catalog.ItemID{
					"brand=Acme": {"1", "2"},
				},
			}
			r := Cached(stub, tc.newCache(t), logger.NewTestLogger(t))
			ctx := context.Background()
			q := benchgen.QuerySpec{"brand": "Acme"}

			for i := 0; i < 3; i++ {
				ids, err := r.Retrieve(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, []catalog.ItemID{"1", "2"}, ids)
			}
			assert.Equal(t, 1, stub.calls)

			// Empty answers are cached too.
			for i := 0; i < 2; i++ {
				ids, err := r.Retrieve(ctx, benchgen.QuerySpec{"brand": "Nobody"})
				require.NoError(t, err)
				assert.Empty(t, ids)
			}
			assert.Equal(t, 2, stub.calls)
		})
	}
}

func TestCachedRetrieverDoesNotCacheErrors(t *testing.T) {
	stub := &stubRetriever{method: eval.MethodText, err: assert.AnError}
	cache := NewLRUCache(4, 0)
	r := Cached(stub, cache, nil)

	_, err := r.Retrieve(context.Background(), benchgen.QuerySpec{"brand": "Acme"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, cache.Len())
}

func TestCachedRetrieverSurvivesRedisOutage(t *testing.T) {
	mr, client := newRedis(t)
	stub := &stubRetriever{
		method:  eval.MethodText,
		answers: map[string][]catalog.ItemID{"brand=Acme": {"1"}},
	}
	r := Cached(stub, NewRedisCache(client, "test:", 0), logger.NewTestLogger(t))
	mr.Close()

	ids, err := r.Retrieve(context.Background(), benchgen.QuerySpec{"brand": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.ItemID{"1"}, ids)
}

func TestRedisCacheKeysAndExpiry(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewRedisCache(client, "test:", time.Minute)
	ctx := context.Background()

	stub := &stubRetriever{method: eval.MethodLLM}
	key := CacheKey(stub, benchgen.QuerySpec{"price": "<30", "brand": "Acme"})
	assert.Equal(t, "llm|brand=Acme, price=<30", key)

	require.NoError(t, cache.Set(ctx, key, []catalog.ItemID{"7", "10"}))
	assert.True(t, mr.Exists("test:"+key))

	ids, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []catalog.ItemID{"7", "10"}, ids)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUCacheEvicts(t *testing.T) {
	cache := NewLRUCache(2, 0)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, k, []catalog.ItemID{catalog.ItemID(k)}))
	}
	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok)
	ids, ok, _ := cache.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, []catalog.ItemID{"c"}, ids)
}
