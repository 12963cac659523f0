// Package cmaclient provides the primary entry point for constructing a
// content management API client that implements the cma.Client interface.
//
// It layers configuration, HTTP transport, the job result cache and the
// realtime channel on top of the interfaces and types defined in the cma
// package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cma-client/pkg/cma"
//	  "github.com/fivetwenty-io/cma-client/pkg/cmaclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := cmaclient.New(&cma.Config{
//	    APIEndpoint: "https://site-api.example.com",
//	    APIToken:    "da3b0a8...",
//	    Realtime: cma.RealtimeConfig{
//	      Cluster: "nats://realtime.example.com:4222",
//	      AppKey:  "cma",
//	      Channel: "private-site-1234",
//	    },
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Subscribe before starting asynchronous work so no result is missed.
//	  if err := cli.JobResults().SubscribeToEvents(ctx); err != nil { log.Fatal(err) }
//
//	  seq, err := cli.Items().ListPagedIterator(ctx,
//	    cma.NewQueryParams().WithFilter("type", "article"),
//	    cma.PaginationOptions{PerPage: 100, Concurrency: 5})
//	  if err != nil { log.Fatal(err) }
//
//	  var ids []string
//	  for item, err := range seq {
//	    if err != nil { log.Fatal(err) }
//	    ids = append(ids, item.ID())
//	  }
//
//	  result, err := cli.Items().BulkDestroy(ctx, ids)
//	  if err != nil { log.Fatal(err) }
//	  log.Printf("job %s finished with status %d", result.ID, result.Status)
//	}
//
// Errors
//
// Non-2xx responses are returned as *cma.APIError. Use FindError to look for
// a specific error code:
//
//	apiErr := &cma.APIError{}
//	if errors.As(err, &apiErr) {
//	  if e := apiErr.FindError("INVALID_FIELD", cma.MatchDetails(map[string]interface{}{"field": "title"})); e != nil {
//	    // handle the invalid title
//	  }
//	}
package cmaclient
