// Package cma provides types, interfaces, and helpers for working with a
// content management API that speaks JSON:API.
//
// # Overview
//
// The cma package defines the domain types (Item, Entity, JobResult), the
// resource client interfaces (ItemsClient, JobResultsClient) and the
// building blocks they are implemented with. A concrete client is provided
// by the cmaclient package; most consumers construct one there and use the
// interfaces exposed here.
//
// # Documents
//
// Serialize and Deserialize convert between flat resources and JSON:API
// entities following a SerializationSpec:
//
//	spec := cma.SerializationSpec{
//	  Type:          "menu_item",
//	  Attributes:    []string{cma.Wildcard},
//	  Relationships: []string{"parent"},
//	}
//	entity, err := cma.Serialize(cma.Resource{"label": "Home", "parent": nil}, spec)
//
// Items have their own codec: DeserializeItem copies the item type id to
// ItemTypeIDKey and decodes nested blocks, and SerializeItem does the
// reverse.
//
// # Pagination
//
// Paginate turns a page fetcher into an iterator. The first page is fetched
// alone to learn the collection size, the rest go through a Limiter, and
// elements come out in collection order:
//
//	seq, err := cma.Paginate(ctx, limits, cma.PaginationOptions{PerPage: 100}, fetch)
//	if err != nil { return err } // invalid options, nothing was fetched
//	for item, err := range seq {
//	  if err != nil { return err }
//	  _ = item
//	}
//
// # Errors
//
// Every non-2xx response is an *APIError carrying the request, the response
// and the call site. Requests that got no response in time fail with a
// *TimeoutError, which matches ErrTimeout. Programmer errors match ErrUsage
// and invalid configuration matches ErrConfig.
//
// # Caching
//
// Completed job results can be cached in memory, in a NATS key-value bucket
// or in Redis. See CacheConfig.
package cma
