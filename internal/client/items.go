package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"strconv"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/internal/http"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// ItemsLimits are the page size bounds of the items endpoint.
var ItemsLimits = cma.PaginationLimits{
	DefaultLimit: constants.ItemsDefaultPageSize,
	MaxLimit:     constants.ItemsMaxPageSize,
}

// ItemsClient implements cma.ItemsClient.
type ItemsClient struct {
	httpClient *http.Client
	jobResults *JobResultsClient
	logger     cma.Logger
}

// NewItemsClient creates a new items client.
func NewItemsClient(httpClient *http.Client, jobResults *JobResultsClient, logger cma.Logger) *ItemsClient {
	return &ItemsClient{
		httpClient: httpClient,
		jobResults: jobResults,
		logger:     cma.LoggerOrNop(logger),
	}
}

// List implements cma.ItemsClient.List. It returns a single page as selected
// by the page[offset] and page[limit] parameters.
func (c *ItemsClient) List(ctx context.Context, params cma.QueryParams) (*cma.Page[cma.Item], error) {
	resp, err := c.httpClient.Get(ctx, constants.APIPathItems, toValues(params))
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	var envelope struct {
		Data []interface{} `json:"data"`
		Meta struct {
			TotalCount int `json:"total_count"`
		} `json:"meta"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing items list response: %w", err)
	}

	page := &cma.Page[cma.Item]{
		Items:      make([]cma.Item, 0, len(envelope.Data)),
		TotalCount: envelope.Meta.TotalCount,
	}

	for _, entity := range envelope.Data {
		item, ok := cma.DeserializeItem(entity).(cma.Item)
		if !ok {
			return nil, fmt.Errorf("parsing items list response: %w", ErrUnexpectedResponse)
		}

		page.Items = append(page.Items, item)
	}

	return page, nil
}

// ListPagedIterator implements cma.ItemsClient.ListPagedIterator. Page
// parameters in params are ignored with a warning.
func (c *ItemsClient) ListPagedIterator(
	ctx context.Context,
	params cma.QueryParams,
	opts cma.PaginationOptions,
) (iter.Seq2[cma.Item, error], error) {
	base := cma.StripPageParams(c.logger, params)

	return cma.Paginate(ctx, ItemsLimits, opts, func(ctx context.Context, offset, limit int) (*cma.Page[cma.Item], error) {
		query := maps.Clone(base)
		query["page[offset]"] = strconv.Itoa(offset)
		query["page[limit]"] = strconv.Itoa(limit)

		return c.List(ctx, query)
	})
}

// Find implements cma.ItemsClient.Find.
func (c *ItemsClient) Find(ctx context.Context, id string) (cma.Item, error) {
	resp, err := c.httpClient.Get(ctx, resourcePath(constants.APIPathItems, id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}

	return decodeItem(resp.Body)
}

// Create implements cma.ItemsClient.Create.
func (c *ItemsClient) Create(ctx context.Context, item cma.Item) (cma.Item, error) {
	entity, err := cma.SerializeItem(item)
	if err != nil {
		return nil, fmt.Errorf("serializing item: %w", err)
	}

	resp, err := c.httpClient.Post(ctx, constants.APIPathItems, &cma.Document{Data: entity})
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return decodeItem(resp.Body)
}

// Update implements cma.ItemsClient.Update.
func (c *ItemsClient) Update(ctx context.Context, id string, item cma.Item) (cma.Item, error) {
	withID := maps.Clone(item)
	if withID == nil {
		withID = cma.Item{}
	}

	withID["id"] = id

	entity, err := cma.SerializeItem(withID)
	if err != nil {
		return nil, fmt.Errorf("serializing item: %w", err)
	}

	resp, err := c.httpClient.Put(ctx, resourcePath(constants.APIPathItems, id), &cma.Document{Data: entity})
	if err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}

	return decodeItem(resp.Body)
}

// Destroy implements cma.ItemsClient.Destroy.
func (c *ItemsClient) Destroy(ctx context.Context, id string) (cma.Item, error) {
	resp, err := c.httpClient.Delete(ctx, resourcePath(constants.APIPathItems, id))
	if err != nil {
		return nil, fmt.Errorf("deleting item %s: %w", id, err)
	}

	return decodeItem(resp.Body)
}

// BulkDestroy implements cma.ItemsClient.BulkDestroy. The operation runs as
// a job whose result is awaited through the job results client.
func (c *ItemsClient) BulkDestroy(ctx context.Context, ids []string) (*cma.JobResult, error) {
	refs := make([]cma.Ref, len(ids))
	for i, id := range ids {
		refs[i] = cma.Ref{ID: id, Type: cma.TypeItem}
	}

	body := &cma.Document{Data: &cma.Entity{
		Type: "item_bulk_destroy_operation",
		Relationships: map[string]cma.Relationship{
			"items": {Data: refs},
		},
	}}

	resp, err := c.httpClient.Post(ctx, constants.APIPathItems+"/bulk/destroy", body)
	if err != nil {
		return nil, fmt.Errorf("bulk destroying items: %w", err)
	}

	var envelope struct {
		Data cma.Job `json:"data"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing job response: %w", err)
	}

	if envelope.Data.ID == "" {
		return nil, fmt.Errorf("parsing job response: %w", ErrUnexpectedResponse)
	}

	return c.jobResults.Await(ctx, &envelope.Data)
}

func decodeItem(body []byte) (cma.Item, error) {
	var document interface{}

	err := json.Unmarshal(body, &document)
	if err != nil {
		return nil, fmt.Errorf("parsing item response: %w", err)
	}

	item, ok := cma.DeserializeItemResponseBody(document).(cma.Item)
	if !ok {
		return nil, fmt.Errorf("parsing item response: %w", ErrUnexpectedResponse)
	}

	return item, nil
}
