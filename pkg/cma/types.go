package cma

import "encoding/json"

// Resource is a flat domain object: id, type and meta next to every attribute
// and every relationship value.
type Resource map[string]interface{}

// ID returns the resource id, or "" when absent.
func (r Resource) ID() string {
	id, _ := r["id"].(string)

	return id
}

// Type returns the resource type, or "" when absent.
func (r Resource) Type() string {
	kind, _ := r["type"].(string)

	return kind
}

// Item is a record of the content model. Its item type id is kept under
// ItemTypeIDKey.
type Item = Resource

// ItemTypeIDKey is the synthetic field holding an item's item type id.
const ItemTypeIDKey = "__itemTypeId"

// Wire type names.
const (
	TypeItem      = "item"
	TypeItemType  = "item_type"
	TypeJobResult = "job_result"
	TypeAPIError  = "api_error"
)

// Ref is a relationship reference.
type Ref struct {
	ID   string `json:"id"   yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// Relationship wraps a reference (single, slice or null) under data.
type Relationship struct {
	Data interface{} `json:"data"`
}

// Entity is a JSON:API resource object.
type Entity struct {
	ID            string                  `json:"id,omitempty"`
	Type          string                  `json:"type"`
	Attributes    map[string]interface{}  `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Meta          map[string]interface{}  `json:"meta,omitempty"`
}

// Document is a request or response body.
type Document struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// JobResult is the outcome of an asynchronous server operation.
type JobResult struct {
	ID      string          `json:"id"      yaml:"id"`
	Type    string          `json:"type"    yaml:"type"`
	Status  int             `json:"status"  yaml:"status"`
	Payload json.RawMessage `json:"payload" yaml:"payload"`
}

// Job is returned by endpoints that run asynchronously (HTTP 202).
type Job struct {
	ID   string `json:"id"   yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// QueryParams holds list query parameters.
type QueryParams map[string]string

// NewQueryParams creates empty query parameters.
func NewQueryParams() QueryParams {
	return QueryParams{}
}

// WithFilter sets filter[key]=value.
func (q QueryParams) WithFilter(key, value string) QueryParams {
	q["filter["+key+"]"] = value

	return q
}

// WithOrderBy sets order_by.
func (q QueryParams) WithOrderBy(orderBy string) QueryParams {
	q["order_by"] = orderBy

	return q
}
