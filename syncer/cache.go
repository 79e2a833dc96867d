package syncer

import (
	"context"
	"fmt"
	"time"
)

// fetchCache memoizes aggregator fetches for one run, so accounts of the same item sharing a
// token and a start date cost one upstream call. Errors are not cached.
type fetchCache struct {
	aggregator Aggregator
	entries    map[string][]RawTransaction
}

func newFetchCache(a Aggregator) *fetchCache {
	return &fetchCache{
		aggregator: a,
		entries:    make(map[string][]RawTransaction),
	}
}

func cacheKey(token string, start time.Time) string {
	return token + "-" + start.Format(DateLayout)
}

// Fetch returns the batch of token's item from start until end. end is fixed for a run and is not
// part of the key.
func (c *fetchCache) Fetch(ctx context.Context, token string, start, end time.Time) ([]RawTransaction, bool, error) {
	key := cacheKey(token, start)
	if batch, ok := c.entries[key]; ok {
		return batch, true, nil
	}

	batch, err := c.aggregator.FetchTransactions(ctx, token, start, end)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	c.entries[key] = batch
	return batch, false, nil
}
