package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCache(t *testing.T) {
	ctx := context.Background()
	agg := &fakeAggregator{batches: map[string][]RawTransaction{
		"tok": {{AccountID: "plaid-a", TransactionID: "t1"}},
	}}
	cache := newFetchCache(agg)
	end := date(2024, 3, 15)

	batch, cached, err := cache.Fetch(ctx, "tok", date(2024, 3, 1), end)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, batch, 1)

	batch, cached, err = cache.Fetch(ctx, "tok", date(2024, 3, 1), end)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, batch, 1)
	assert.Len(t, agg.calls, 1)

	_, cached, err = cache.Fetch(ctx, "tok", date(2024, 3, 2), end)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, agg.calls, 2)
}

func TestFetchCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	agg := &fakeAggregator{err: errors.New("rate limited")}
	cache := newFetchCache(agg)

	_, _, err := cache.Fetch(ctx, "tok", date(2024, 3, 1), date(2024, 3, 15))
	assert.ErrorIs(t, err, ErrFetch)

	agg.err = nil
	_, cached, err := cache.Fetch(ctx, "tok", date(2024, 3, 1), date(2024, 3, 15))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, agg.calls, 2)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "access-sandbox-1-2024-03-01", cacheKey("access-sandbox-1", date(2024, 3, 1)))
}
