package cma_test

import (
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var articleSpec = cma.SerializationSpec{
	Type:          "article",
	Attributes:    []string{"title", "tags"},
	Relationships: []string{"author", "categories"},
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	t.Run("splits attributes and relationships", func(t *testing.T) {
		t.Parallel()

		entity, err := cma.Serialize(cma.Resource{
			"id":         "12",
			"title":      "Hello",
			"tags":       []interface{}{"go"},
			"author":     cma.Ref{ID: "u1", Type: "user"},
			"categories": []interface{}{map[string]interface{}{"id": "c1", "type": "category"}},
			"meta":       map[string]interface{}{"current_version": "v1"},
			"internal":   "dropped",
		}, articleSpec)
		require.NoError(t, err)

		assert.Equal(t, "12", entity.ID)
		assert.Equal(t, "article", entity.Type)
		assert.Equal(t, map[string]interface{}{"title": "Hello", "tags": []interface{}{"go"}}, entity.Attributes)
		assert.Equal(t, map[string]cma.Relationship{
			"author":     {Data: cma.Ref{ID: "u1", Type: "user"}},
			"categories": {Data: []cma.Ref{{ID: "c1", Type: "category"}}},
		}, entity.Relationships)
		assert.Equal(t, map[string]interface{}{"current_version": "v1"}, entity.Meta)
	})

	t.Run("wildcard attributes", func(t *testing.T) {
		t.Parallel()

		entity, err := cma.Serialize(cma.Resource{
			"title":  "Hello",
			"slug":   "hello",
			"author": cma.Ref{ID: "u1", Type: "user"},
		}, cma.SerializationSpec{Type: "article", Attributes: []string{cma.Wildcard}, Relationships: []string{"author"}})
		require.NoError(t, err)

		assert.Equal(t, map[string]interface{}{"title": "Hello", "slug": "hello"}, entity.Attributes)
		assert.Contains(t, entity.Relationships, "author")
	})

	t.Run("wildcard relationships", func(t *testing.T) {
		t.Parallel()

		entity, err := cma.Serialize(cma.Resource{
			"title":  "Hello",
			"author": cma.Ref{ID: "u1", Type: "user"},
			"editor": cma.Ref{ID: "u2", Type: "user"},
		}, cma.SerializationSpec{Type: "article", Attributes: []string{"title"}, Relationships: []string{cma.Wildcard}})
		require.NoError(t, err)

		assert.Equal(t, map[string]interface{}{"title": "Hello"}, entity.Attributes)
		assert.Len(t, entity.Relationships, 2)
	})

	t.Run("both sides wildcarded", func(t *testing.T) {
		t.Parallel()

		_, err := cma.Serialize(cma.Resource{"title": "Hello"}, cma.SerializationSpec{
			Type:          "article",
			Attributes:    []string{cma.Wildcard},
			Relationships: []string{cma.Wildcard},
		})
		require.ErrorIs(t, err, cma.ErrConfig)
		require.ErrorIs(t, err, cma.ErrInvalidSpec)
	})

	t.Run("invalid references become null", func(t *testing.T) {
		t.Parallel()

		entity, err := cma.Serialize(cma.Resource{
			"author":     "u1",
			"categories": []interface{}{map[string]interface{}{"id": "c1", "type": "category"}, 42},
		}, articleSpec)
		require.NoError(t, err)

		assert.Nil(t, entity.Relationships["author"].Data)
		assert.Nil(t, entity.Relationships["categories"].Data)
	})

	t.Run("type falls back to the resource", func(t *testing.T) {
		t.Parallel()

		entity, err := cma.Serialize(cma.Resource{"type": "page", "title": "x"}, cma.SerializationSpec{
			Attributes: []string{cma.Wildcard},
		})
		require.NoError(t, err)
		assert.Equal(t, "page", entity.Type)
	})
}

func TestSerializeRequestBody(t *testing.T) {
	t.Parallel()

	document, err := cma.SerializeRequestBody(cma.Resource{
		"title":  "Hello",
		"author": nil,
	}, articleSpec)
	require.NoError(t, err)

	body, err := json.Marshal(document)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": {
			"type": "article",
			"attributes": {"title": "Hello"},
			"relationships": {"author": {"data": null}}
		}
	}`, string(body))
}

func TestDeserialize(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		article := cma.Resource{
			"id":         "12",
			"type":       "article",
			"title":      "Hello",
			"views":      3,
			"rating":     4.5,
			"tags":       []string{"go", "json"},
			"author":     cma.Ref{ID: "u1", Type: "user"},
			"categories": []cma.Ref{{ID: "c1", Type: "category"}, {ID: "c2", Type: "category"}},
			"meta":       map[string]interface{}{"status": "draft"},
		}

		entity, err := cma.Serialize(article, cma.SerializationSpec{
			Type:          "article",
			Attributes:    []string{cma.Wildcard},
			Relationships: []string{"author", "categories"},
		})
		require.NoError(t, err)

		assert.Equal(t, article, cma.Deserialize(entity))
		assert.Equal(t, article, cma.Deserialize(*entity))
	})

	t.Run("new resource round trip", func(t *testing.T) {
		t.Parallel()

		article := cma.Resource{
			"type":   "article",
			"title":  "Draft",
			"author": cma.Ref{ID: "u1", Type: "user"},
		}

		entity, err := cma.Serialize(article, articleSpec)
		require.NoError(t, err)
		assert.Empty(t, entity.ID)

		assert.Equal(t, article, cma.Deserialize(entity))
	})

	t.Run("nil entity", func(t *testing.T) {
		t.Parallel()

		var entity *cma.Entity

		assert.Equal(t, entity, cma.Deserialize(entity))
	})

	t.Run("wire entity", func(t *testing.T) {
		t.Parallel()

		var node map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(`{
			"id": "12",
			"type": "article",
			"attributes": {"title": "Hello"},
			"relationships": {"author": {"data": null}},
			"meta": {"status": "draft"}
		}`), &node))

		assert.Equal(t, cma.Resource{
			"id":     "12",
			"type":   "article",
			"title":  "Hello",
			"author": nil,
			"meta":   map[string]interface{}{"status": "draft"},
		}, cma.Deserialize(node))
	})

	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "string", value: "plain"},
		{name: "number", value: 42.0},
		{name: "nil", value: nil},
		{name: "object without type", value: map[string]interface{}{"id": "1"}},
		{name: "attributes not an object", value: map[string]interface{}{"type": "x", "attributes": "oops"}},
		{name: "relationships not an object", value: map[string]interface{}{"type": "x", "relationships": []interface{}{}}},
	}

	for _, tt := range tests {
		t.Run("passes through "+tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.value, cma.Deserialize(tt.value))
		})
	}

	t.Run("keeps malformed relationships", func(t *testing.T) {
		t.Parallel()

		decoded := cma.Deserialize(map[string]interface{}{
			"type": "article",
			"relationships": map[string]interface{}{
				"author": "u1",
				"editor": map[string]interface{}{"links": "x"},
			},
		})

		assert.Equal(t, cma.Resource{
			"type":   "article",
			"author": "u1",
			"editor": map[string]interface{}{"links": "x"},
		}, decoded)
	})
}

func TestDeserializeResponseBody(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, body string) interface{} {
		t.Helper()

		var document interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &document))

		return cma.DeserializeResponseBody(document)
	}

	t.Run("single entity", func(t *testing.T) {
		t.Parallel()

		decoded := decode(t, `{"data":{"id":"1","type":"article","attributes":{"title":"a"}}}`)
		assert.Equal(t, cma.Resource{"id": "1", "type": "article", "title": "a"}, decoded)
	})

	t.Run("collection", func(t *testing.T) {
		t.Parallel()

		decoded := decode(t, `{"data":[{"id":"1","type":"article"},{"id":"2","type":"article"}]}`)
		assert.Equal(t, []interface{}{
			cma.Resource{"id": "1", "type": "article"},
			cma.Resource{"id": "2", "type": "article"},
		}, decoded)
	})

	t.Run("no data", func(t *testing.T) {
		t.Parallel()

		decoded := decode(t, `{"meta":{"total_count":3}}`)
		assert.Equal(t, map[string]interface{}{"meta": map[string]interface{}{"total_count": 3.0}}, decoded)
	})

	t.Run("not an object", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []interface{}{1.0}, decode(t, `[1]`))
	})
}

func TestDecodeInto(t *testing.T) {
	t.Parallel()

	var result cma.JobResult

	err := cma.DecodeInto(cma.Resource{
		"id":      "J1",
		"type":    "job_result",
		"status":  413.0,
		"payload": map[string]interface{}{"data": []interface{}{}},
	}, &result)
	require.NoError(t, err)

	assert.Equal(t, "J1", result.ID)
	assert.Equal(t, 413, result.Status)
	assert.JSONEq(t, `{"data":[]}`, string(result.Payload))
}
