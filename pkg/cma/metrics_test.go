package cma

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // reads process-wide counters
func TestPaginateMetrics(t *testing.T) {
	before := testutil.ToFloat64(pagesFetchedTotal)

	fetch := func(_ context.Context, offset, limit int) (*Page[int], error) {
		page := &Page[int]{TotalCount: 25}
		for i := offset; i < offset+limit && i < 25; i++ {
			page.Items = append(page.Items, i)
		}

		return page, nil
	}

	seq, err := Paginate(context.Background(), PaginationLimits{DefaultLimit: 10}, PaginationOptions{}, fetch)
	require.NoError(t, err)

	items, err := CollectAll(seq)
	require.NoError(t, err)
	assert.Len(t, items, 25)

	assert.InDelta(t, 3, testutil.ToFloat64(pagesFetchedTotal)-before, 0)
	assert.InDelta(t, 0, testutil.ToFloat64(limiterInFlight), 0)
}

//nolint:paralleltest // reads process-wide counters
func TestJobResultCacheMetrics(t *testing.T) {
	ctx := context.Background()
	hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss"))

	cache := NewJobResultCache(NewMemoryCache(10), 0)

	_, found := cache.Get(ctx, "J1")
	assert.False(t, found)

	require.NoError(t, cache.Put(ctx, &JobResult{ID: "J1", Status: 200}))

	_, found = cache.Get(ctx, "J1")
	assert.True(t, found)

	assert.InDelta(t, 1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit"))-hits, 0)
	assert.InDelta(t, 1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss"))-misses, 0)
}
