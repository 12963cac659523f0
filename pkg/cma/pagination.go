package cma

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/fivetwenty-io/cma-client/internal/constants"
)

// Page is one page of a collection together with the collection size.
type Page[T any] struct {
	Items      []T
	TotalCount int
}

// PageFetcher fetches the page starting at offset. A fetcher returning a nil
// page without an error fails the pagination with ErrNoPage.
type PageFetcher[T any] func(ctx context.Context, offset, limit int) (*Page[T], error)

// PaginationLimits are the page size bounds of an endpoint.
type PaginationLimits struct {
	DefaultLimit int
	MaxLimit     int
}

// PaginationOptions tune auto-pagination. Zero values select the endpoint's
// default page size and constants.DefaultConcurrencyLimit.
type PaginationOptions struct {
	PerPage     int
	Concurrency int
}

// DefaultPaginationOptions returns options using the endpoint defaults.
func DefaultPaginationOptions() PaginationOptions {
	return PaginationOptions{}
}

func (o PaginationOptions) resolve(limits PaginationLimits) (int, int, error) {
	perPage := o.PerPage
	if perPage == 0 {
		perPage = limits.DefaultLimit
	}

	concurrency := o.Concurrency
	if concurrency == 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	switch {
	case perPage < 1:
		return 0, 0, fmt.Errorf("%w: perPage must be positive, got %d", ErrConfig, perPage)
	case limits.MaxLimit > 0 && perPage > limits.MaxLimit:
		return 0, 0, fmt.Errorf("%w: perPage %d exceeds the maximum of %d", ErrConfig, perPage, limits.MaxLimit)
	case concurrency < 1:
		return 0, 0, fmt.Errorf("%w: concurrency must be positive, got %d", ErrConfig, concurrency)
	case concurrency > constants.MaxPaginationConcurrency:
		return 0, 0, fmt.Errorf("%w: concurrency %d exceeds the maximum of %d",
			ErrConfig, concurrency, constants.MaxPaginationConcurrency)
	}

	return perPage, concurrency, nil
}

// Paginate returns an iterator over every element of a remote collection.
//
// Options are validated immediately, before any request. Iteration fetches
// offset 0 first and reads the total count from it, then fetches the
// remaining pages through a Limiter. Elements are yielded in collection
// order whatever order the pages complete in. Stopping the iteration early
// cancels the outstanding fetches. The first error is yielded once and ends
// the iteration.
func Paginate[T any](
	ctx context.Context,
	limits PaginationLimits,
	opts PaginationOptions,
	fetch PageFetcher[T],
) (iter.Seq2[T, error], error) {
	perPage, concurrency, err := opts.resolve(limits)
	if err != nil {
		return nil, err
	}

	return func(yield func(T, error) bool) {
		var zero T

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		fetchPage := func(ctx context.Context, offset int) (*Page[T], error) {
			page, err := fetch(ctx, offset, perPage)
			if err == nil && page == nil {
				return nil, ErrNoPage
			}

			return page, err
		}

		first, err := fetchPage(ctx, 0)
		if err != nil {
			yield(zero, fmt.Errorf("fetching page at offset 0: %w", err))

			return
		}

		pagesFetchedTotal.Inc()

		for _, item := range first.Items {
			if !yield(item, nil) {
				return
			}
		}

		limiter := NewLimiter(concurrency)

		var pending []*Future[*Page[T]]

		for offset := perPage; offset < first.TotalCount; offset += perPage {
			pending = append(pending, Enqueue(ctx, limiter, func(ctx context.Context) (*Page[T], error) {
				return fetchPage(ctx, offset)
			}))
		}

		for index, future := range pending {
			page, err := future.Wait(ctx)
			if err != nil {
				yield(zero, fmt.Errorf("fetching page at offset %d: %w", (index+1)*perPage, err))

				return
			}

			pagesFetchedTotal.Inc()

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}, nil
}

// CollectAll drains seq into a slice, stopping at the first error.
func CollectAll[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var all []T

	for item, err := range seq {
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	return all, nil
}

// StripPageParams returns a copy of query without page parameters. They have
// no effect on auto-paginated calls, so their presence is logged as a warning.
func StripPageParams(logger Logger, query QueryParams) QueryParams {
	stripped := make(QueryParams, len(query))

	for key, value := range query {
		if key == "page" || strings.HasPrefix(key, "page[") {
			logger.Warn("Ignoring page parameter on auto-paginated call", map[string]interface{}{
				"param": key,
				"value": value,
			})

			continue
		}

		stripped[key] = value
	}

	return stripped
}
