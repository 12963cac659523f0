package cma

// itemSpec serializes items: everything is an attribute except the two
// relationships every item carries.
var itemSpec = SerializationSpec{
	Type:          TypeItem,
	Attributes:    []string{Wildcard},
	Relationships: []string{"item_type", "creator"},
}

// DeserializeItem decodes an item entity. Besides the generic flattening, the
// item type id is copied to ItemTypeIDKey and nested items found anywhere in
// the attributes (modular content, structured text blocks) are decoded the
// same way. Values that are not items fall back to Deserialize.
func DeserializeItem(value interface{}) interface{} {
	if entity, ok := asEntity(value); ok {
		return deserializeItemEntity(entity)
	}

	node, ok := asNode(value)
	if !ok || node["type"] != TypeItem {
		return Deserialize(value)
	}

	item, ok := Deserialize(node).(Resource)
	if !ok {
		return value
	}

	if itemTypeID, found := itemTypeIDOf(node); found {
		item[ItemTypeIDKey] = itemTypeID
	}

	attributes, _ := optionalMap(node, "attributes")
	for key := range attributes {
		item[key] = walkNestedItems(item[key])
	}

	return item
}

func deserializeItemEntity(entity *Entity) interface{} {
	item := entityResource(entity)
	if entity.Type != TypeItem {
		return item
	}

	if ref, ok := entity.Relationships["item_type"].Data.(Ref); ok {
		item[ItemTypeIDKey] = ref.ID
	}

	for key := range entity.Attributes {
		item[key] = walkNestedItems(item[key])
	}

	return item
}

// DeserializeItemResponseBody is DeserializeResponseBody for item endpoints.
func DeserializeItemResponseBody(body interface{}) interface{} {
	document, ok := body.(map[string]interface{})
	if !ok {
		return body
	}

	switch data := document["data"].(type) {
	case map[string]interface{}:
		return DeserializeItem(data)
	case []interface{}:
		decoded := make([]interface{}, len(data))
		for i, element := range data {
			decoded[i] = DeserializeItem(element)
		}

		return decoded
	default:
		return body
	}
}

// walkNestedItems rebuilds node, decoding every object whose type is item.
// JSON input is a tree, so no cycle tracking is needed.
func walkNestedItems(node interface{}) interface{} {
	switch typed := node.(type) {
	case map[string]interface{}:
		if typed["type"] == TypeItem {
			return DeserializeItem(typed)
		}

		walked := make(map[string]interface{}, len(typed))
		for key, value := range typed {
			walked[key] = walkNestedItems(value)
		}

		return walked
	case []interface{}:
		walked := make([]interface{}, len(typed))
		for i, value := range typed {
			walked[i] = walkNestedItems(value)
		}

		return walked
	case *Entity, Entity:
		if entity, ok := asEntity(typed); ok && entity.Type == TypeItem {
			return deserializeItemEntity(entity)
		}

		return node
	default:
		return node
	}
}

func itemTypeIDOf(node map[string]interface{}) (string, bool) {
	relationships, _ := node["relationships"].(map[string]interface{})
	itemType, _ := relationships["item_type"].(map[string]interface{})
	data, _ := itemType["data"].(map[string]interface{})
	id, ok := data["id"].(string)

	return id, ok
}

// SerializeItem converts an item into an entity. ItemTypeIDKey becomes the
// item_type relationship and nested blocks (objects carrying ItemTypeIDKey)
// are serialized into nested item entities.
func SerializeItem(item Item) (*Entity, error) {
	flat := make(Resource, len(item))

	for key, value := range item {
		if key == ItemTypeIDKey {
			continue
		}

		flat[key] = value
	}

	if itemTypeID, ok := item[ItemTypeIDKey].(string); ok {
		flat["item_type"] = Ref{ID: itemTypeID, Type: TypeItemType}
	}

	entity, err := Serialize(flat, itemSpec)
	if err != nil {
		return nil, err
	}

	for key, value := range entity.Attributes {
		walked, err := serializeNestedBlocks(value)
		if err != nil {
			return nil, err
		}

		entity.Attributes[key] = walked
	}

	return entity, nil
}

func serializeNestedBlocks(node interface{}) (interface{}, error) {
	switch typed := node.(type) {
	case map[string]interface{}:
		return serializeBlockNode(typed)
	case Resource:
		return serializeBlockNode(typed)
	case []Resource:
		return serializeBlockSlice(typed)
	case []map[string]interface{}:
		return serializeBlockSlice(typed)
	case []interface{}:
		walked := make([]interface{}, len(typed))

		for i, value := range typed {
			block, err := serializeNestedBlocks(value)
			if err != nil {
				return nil, err
			}

			walked[i] = block
		}

		return walked, nil
	default:
		return node, nil
	}
}

func serializeBlockSlice[M ~map[string]interface{}](blocks []M) (interface{}, error) {
	walked := make([]interface{}, len(blocks))

	for i, block := range blocks {
		value, err := serializeBlockNode(map[string]interface{}(block))
		if err != nil {
			return nil, err
		}

		walked[i] = value
	}

	return walked, nil
}

func serializeBlockNode(node map[string]interface{}) (interface{}, error) {
	if _, isBlock := node[ItemTypeIDKey]; isBlock {
		entity, err := SerializeItem(node)
		if err != nil {
			return nil, err
		}

		return entity, nil
	}

	walked := make(map[string]interface{}, len(node))

	for key, value := range node {
		block, err := serializeNestedBlocks(value)
		if err != nil {
			return nil, err
		}

		walked[key] = block
	}

	return walked, nil
}
