package cma_test

import (
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemWithBlocks = `{
  "id": "A1",
  "type": "item",
  "attributes": {
    "title": "Landing page",
    "sections": [
      {
        "id": "B1",
        "type": "item",
        "attributes": {"heading": "Intro"},
        "relationships": {"item_type": {"data": {"id": "HERO", "type": "item_type"}}}
      }
    ],
    "body": {
      "schema": "dast",
      "document": {
        "type": "root",
        "children": [
          {
            "type": "block",
            "item": {
              "id": "B2",
              "type": "item",
              "attributes": {"caption": "Figure"},
              "relationships": {"item_type": {"data": {"id": "IMAGE", "type": "item_type"}}}
            }
          }
        ]
      }
    }
  },
  "relationships": {
    "item_type": {"data": {"id": "PAGE", "type": "item_type"}},
    "creator": {"data": {"id": "U1", "type": "account"}}
  },
  "meta": {"status": "published"}
}`

func TestDeserializeItem(t *testing.T) {
	t.Parallel()

	var node map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(itemWithBlocks), &node))

	item, ok := cma.DeserializeItem(node).(cma.Item)
	require.True(t, ok)

	t.Run("hoists the item type id", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "PAGE", item[cma.ItemTypeIDKey])
		assert.Equal(t, map[string]interface{}{"id": "PAGE", "type": "item_type"}, item["item_type"])
		assert.Equal(t, map[string]interface{}{"id": "U1", "type": "account"}, item["creator"])
		assert.Equal(t, "Landing page", item["title"])
		assert.Equal(t, map[string]interface{}{"status": "published"}, item["meta"])
	})

	t.Run("decodes modular content blocks", func(t *testing.T) {
		t.Parallel()

		sections, ok := item["sections"].([]interface{})
		require.True(t, ok)
		require.Len(t, sections, 1)

		assert.Equal(t, cma.Item{
			"id":              "B1",
			"type":            "item",
			"heading":         "Intro",
			"item_type":       map[string]interface{}{"id": "HERO", "type": "item_type"},
			cma.ItemTypeIDKey: "HERO",
		}, sections[0])
	})

	t.Run("decodes blocks nested in structured text", func(t *testing.T) {
		t.Parallel()

		body, ok := item["body"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "dast", body["schema"])

		document, ok := body["document"].(map[string]interface{})
		require.True(t, ok)

		children, ok := document["children"].([]interface{})
		require.True(t, ok)

		child, ok := children[0].(map[string]interface{})
		require.True(t, ok)

		block, ok := child["item"].(cma.Item)
		require.True(t, ok)
		assert.Equal(t, "IMAGE", block[cma.ItemTypeIDKey])
		assert.Equal(t, "Figure", block["caption"])
	})
}

func TestDeserializeItem_NonItems(t *testing.T) {
	t.Parallel()

	t.Run("other entity types use the generic decoder", func(t *testing.T) {
		t.Parallel()

		decoded := cma.DeserializeItem(map[string]interface{}{
			"id":            "PAGE",
			"type":          "item_type",
			"attributes":    map[string]interface{}{"api_key": "page"},
			"relationships": map[string]interface{}{"item_type": map[string]interface{}{"data": nil}},
		})

		assert.Equal(t, cma.Resource{"id": "PAGE", "type": "item_type", "api_key": "page", "item_type": nil}, decoded)
	})

	t.Run("item without an item type", func(t *testing.T) {
		t.Parallel()

		decoded, ok := cma.DeserializeItem(map[string]interface{}{"id": "A1", "type": "item"}).(cma.Item)
		require.True(t, ok)
		assert.NotContains(t, decoded, cma.ItemTypeIDKey)
	})

	t.Run("non objects pass through", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "A1", cma.DeserializeItem("A1"))
	})
}

func TestDeserializeItemResponseBody(t *testing.T) {
	t.Parallel()

	var document interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"data":[`+itemWithBlocks+`]}`), &document))

	decoded, ok := cma.DeserializeItemResponseBody(document).([]interface{})
	require.True(t, ok)
	require.Len(t, decoded, 1)

	item, ok := decoded[0].(cma.Item)
	require.True(t, ok)
	assert.Equal(t, "PAGE", item[cma.ItemTypeIDKey])
}

func TestSerializeItem(t *testing.T) {
	t.Parallel()

	item := cma.Item{
		"id":              "A1",
		cma.ItemTypeIDKey: "PAGE",
		"title":           "Landing page",
		"creator":         cma.Ref{ID: "U1", Type: "account"},
		"sections": []interface{}{
			cma.Item{cma.ItemTypeIDKey: "HERO", "heading": "Intro"},
			"B9",
		},
	}

	entity, err := cma.SerializeItem(item)
	require.NoError(t, err)

	t.Run("item type becomes a relationship", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "A1", entity.ID)
		assert.Equal(t, cma.TypeItem, entity.Type)
		assert.Equal(t, cma.Ref{ID: "PAGE", Type: cma.TypeItemType}, entity.Relationships["item_type"].Data)
		assert.Equal(t, cma.Ref{ID: "U1", Type: "account"}, entity.Relationships["creator"].Data)
		assert.NotContains(t, entity.Attributes, cma.ItemTypeIDKey)
		assert.NotContains(t, entity.Attributes, "creator")
	})

	t.Run("new blocks become nested entities", func(t *testing.T) {
		t.Parallel()

		sections, ok := entity.Attributes["sections"].([]interface{})
		require.True(t, ok)
		require.Len(t, sections, 2)

		block, ok := sections[0].(*cma.Entity)
		require.True(t, ok)
		assert.Empty(t, block.ID)
		assert.Equal(t, map[string]interface{}{"heading": "Intro"}, block.Attributes)
		assert.Equal(t, cma.Ref{ID: "HERO", Type: cma.TypeItemType}, block.Relationships["item_type"].Data)

		// Existing blocks are referenced by id.
		assert.Equal(t, "B9", sections[1])
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		decoded, ok := cma.DeserializeItem(entity).(cma.Item)
		require.True(t, ok)

		assert.Equal(t, cma.Item{
			"id":              "A1",
			"type":            cma.TypeItem,
			cma.ItemTypeIDKey: "PAGE",
			"title":           "Landing page",
			"item_type":       cma.Ref{ID: "PAGE", Type: cma.TypeItemType},
			"creator":         cma.Ref{ID: "U1", Type: "account"},
			"sections": []interface{}{
				cma.Item{
					"type":            cma.TypeItem,
					cma.ItemTypeIDKey: "HERO",
					"heading":         "Intro",
					"item_type":       cma.Ref{ID: "HERO", Type: cma.TypeItemType},
				},
				"B9",
			},
		}, decoded)
	})
}

func TestSerializeItem_TypedBlockSlices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sections interface{}
	}{
		{
			name:     "items",
			sections: []cma.Item{{cma.ItemTypeIDKey: "HERO", "heading": "Intro"}},
		},
		{
			name:     "maps",
			sections: []map[string]interface{}{{cma.ItemTypeIDKey: "HERO", "heading": "Intro"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entity, err := cma.SerializeItem(cma.Item{cma.ItemTypeIDKey: "PAGE", "sections": tt.sections})
			require.NoError(t, err)

			sections, ok := entity.Attributes["sections"].([]interface{})
			require.True(t, ok)
			require.Len(t, sections, 1)

			block, ok := sections[0].(*cma.Entity)
			require.True(t, ok)
			assert.Equal(t, cma.TypeItem, block.Type)
			assert.Equal(t, map[string]interface{}{"heading": "Intro"}, block.Attributes)
			assert.Equal(t, cma.Ref{ID: "HERO", Type: cma.TypeItemType}, block.Relationships["item_type"].Data)

			body, err := json.Marshal(entity)
			require.NoError(t, err)
			assert.NotContains(t, string(body), cma.ItemTypeIDKey)
		})
	}
}
