package cma

import (
	"encoding/json"
	"fmt"
)

// Wildcard as the only element of SerializationSpec.Attributes or
// SerializationSpec.Relationships selects every key not listed on the other side.
const Wildcard = "*"

// SerializationSpec declares which keys of a resource are attributes and which
// are relationships.
type SerializationSpec struct {
	Type          string
	Attributes    []string
	Relationships []string
}

// Validate rejects a spec with both sides wildcarded.
func (s SerializationSpec) Validate() error {
	if isWildcard(s.Attributes) && isWildcard(s.Relationships) {
		return fmt.Errorf("%w: %w", ErrConfig, ErrInvalidSpec)
	}

	return nil
}

// isAttribute reports whether key belongs on the attributes side.
func (s SerializationSpec) isAttribute(key string) bool {
	if isWildcard(s.Attributes) {
		return !containsString(s.Relationships, key)
	}

	return containsString(s.Attributes, key)
}

// isRelationship reports whether key belongs on the relationships side.
func (s SerializationSpec) isRelationship(key string) bool {
	if isWildcard(s.Relationships) {
		return !containsString(s.Attributes, key)
	}

	return containsString(s.Relationships, key)
}

// Serialize converts a flat resource into a JSON:API entity. Keys listed on
// neither side of spec are dropped. Relationship values that are not a
// reference (or a slice of references) are sent as null.
func Serialize(obj Resource, spec SerializationSpec) (*Entity, error) {
	err := spec.Validate()
	if err != nil {
		return nil, err
	}

	entity := &Entity{
		ID:   obj.ID(),
		Type: spec.Type,
	}

	if entity.Type == "" {
		entity.Type = obj.Type()
	}

	if meta, ok := obj["meta"].(map[string]interface{}); ok {
		entity.Meta = meta
	}

	for key, value := range obj {
		switch {
		case key == "id" || key == "type" || key == "meta":
			continue
		case spec.isAttribute(key):
			if entity.Attributes == nil {
				entity.Attributes = make(map[string]interface{})
			}

			entity.Attributes[key] = value
		case spec.isRelationship(key):
			if entity.Relationships == nil {
				entity.Relationships = make(map[string]Relationship)
			}

			entity.Relationships[key] = Relationship{Data: normalizeRef(value)}
		}
	}

	return entity, nil
}

// SerializeRequestBody serializes obj and wraps it under data.
func SerializeRequestBody(obj Resource, spec SerializationSpec) (*Document, error) {
	entity, err := Serialize(obj, spec)
	if err != nil {
		return nil, err
	}

	return &Document{Data: entity}, nil
}

// Deserialize flattens a JSON:API entity into a Resource: attributes move to
// the top level and every relationship is replaced by its data. Anything that
// is not shaped like an entity is returned unchanged. An *Entity keeps the Go
// types of its values, so Deserialize inverts Serialize.
func Deserialize(value interface{}) interface{} {
	if entity, ok := asEntity(value); ok {
		return entityResource(entity)
	}

	node, ok := asNode(value)
	if !ok {
		return value
	}

	kind, ok := node["type"].(string)
	if !ok {
		return value
	}

	attributes, ok := optionalMap(node, "attributes")
	if !ok {
		return value
	}

	relationships, ok := optionalMap(node, "relationships")
	if !ok {
		return value
	}

	result := Resource{"type": kind}

	if id, present := node["id"]; present {
		result["id"] = id
	}

	for key, attribute := range attributes {
		result[key] = attribute
	}

	for key, relationship := range relationships {
		wrapper, isMap := relationship.(map[string]interface{})
		if !isMap {
			result[key] = relationship

			continue
		}

		data, present := wrapper["data"]
		if !present {
			result[key] = relationship

			continue
		}

		result[key] = data
	}

	if meta, present := node["meta"]; present {
		result["meta"] = meta
	}

	return result
}

// DeserializeResponseBody unwraps data, decoding a single entity or every
// element of a collection. Other bodies are returned unchanged.
func DeserializeResponseBody(body interface{}) interface{} {
	document, ok := body.(map[string]interface{})
	if !ok {
		return body
	}

	switch data := document["data"].(type) {
	case map[string]interface{}:
		return Deserialize(data)
	case []interface{}:
		decoded := make([]interface{}, len(data))
		for i, element := range data {
			decoded[i] = Deserialize(element)
		}

		return decoded
	default:
		return body
	}
}

// DecodeInto copies a decoded value into a typed struct.
func DecodeInto(value interface{}, out interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding decoded value: %w", err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("decoding into %T: %w", out, err)
	}

	return nil
}

// normalizeRef returns a Ref, a []Ref, or nil when value does not have the
// shape of a reference.
func normalizeRef(value interface{}) interface{} {
	switch typed := value.(type) {
	case nil:
		return nil
	case Ref:
		return typed
	case *Ref:
		if typed == nil {
			return nil
		}

		return *typed
	case []Ref:
		refs := make([]Ref, len(typed))
		copy(refs, typed)

		return refs
	case []interface{}:
		refs := make([]Ref, 0, len(typed))

		for _, element := range typed {
			ref, ok := asRef(element)
			if !ok {
				return nil
			}

			refs = append(refs, ref)
		}

		return refs
	default:
		ref, ok := asRef(value)
		if !ok {
			return nil
		}

		return ref
	}
}

func asRef(value interface{}) (Ref, bool) {
	switch typed := value.(type) {
	case Ref:
		return typed, true
	case *Ref:
		if typed == nil {
			return Ref{}, false
		}

		return *typed, true
	}

	node, ok := asNode(value)
	if !ok {
		return Ref{}, false
	}

	id, idOK := node["id"].(string)
	kind, typeOK := node["type"].(string)

	if !idOK || !typeOK {
		return Ref{}, false
	}

	return Ref{ID: id, Type: kind}, true
}

// entityResource flattens an in-memory entity without re-encoding its values.
func entityResource(entity *Entity) Resource {
	result := Resource{"type": entity.Type}

	if entity.ID != "" {
		result["id"] = entity.ID
	}

	for key, attribute := range entity.Attributes {
		result[key] = attribute
	}

	for key, relationship := range entity.Relationships {
		result[key] = relationship.Data
	}

	if entity.Meta != nil {
		result["meta"] = entity.Meta
	}

	return result
}

func asEntity(value interface{}) (*Entity, bool) {
	switch typed := value.(type) {
	case *Entity:
		return typed, typed != nil
	case Entity:
		return &typed, true
	default:
		return nil, false
	}
}

// asNode views value as a decoded JSON object.
func asNode(value interface{}) (map[string]interface{}, bool) {
	switch typed := value.(type) {
	case map[string]interface{}:
		return typed, true
	case Resource:
		return typed, true
	default:
		return nil, false
	}
}

// optionalMap returns node[key] as an object. A missing or null key is an
// empty object; any other shape is reported as not ok.
func optionalMap(node map[string]interface{}, key string) (map[string]interface{}, bool) {
	value, present := node[key]
	if !present || value == nil {
		return nil, true
	}

	typed, ok := value.(map[string]interface{})

	return typed, ok
}

func isWildcard(keys []string) bool {
	return len(keys) == 1 && keys[0] == Wildcard
}
