// Package ingest turns Shopify product payloads, REST or GraphQL shaped, into mirror rows.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fekuna/shopsync-service/internal/apperr"
)

type PayloadShape int

const (
	ShapeUnknown PayloadShape = iota
	ShapeREST
	ShapeGraphQL
)

func (s PayloadShape) String() string {
	switch s {
	case ShapeREST:
		return "rest"
	case ShapeGraphQL:
		return "graphql"
	default:
		return "unknown"
	}
}

// DetectShape decides once how a payload is laid out and returns the product node to decode.
// A {"product": {...}} envelope is unwrapped first; the node's own fields decide the shape
// and an envelope with no other hint counts as GraphQL.
func DetectShape(raw []byte) (PayloadShape, json.RawMessage, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return ShapeUnknown, nil, err
	}

	node := json.RawMessage(raw)
	wrapped := false
	if inner, ok := fields["product"]; ok && isObject(inner) {
		if fields, err = objectFields(inner); err != nil {
			return ShapeUnknown, nil, err
		}
		node = inner
		wrapped = true
	}

	switch {
	case has(fields, "descriptionHtml"), isGID(fields["id"]), isConnection(fields["variants"]), isConnection(fields["images"]):
		return ShapeGraphQL, node, nil
	case has(fields, "body_html"), isArray(fields["variants"]), isNumber(fields["id"]):
		return ShapeREST, node, nil
	case wrapped:
		return ShapeGraphQL, node, nil
	case has(fields, "id"):
		return ShapeREST, node, nil
	}
	return ShapeUnknown, nil, fmt.Errorf("%w: unrecognised product payload", apperr.ErrMalformedPayload)
}

func objectFields(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedPayload, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: empty payload", apperr.ErrMalformedPayload)
	}
	return fields, nil
}

func has(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

func firstByte(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func isObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }

func isArray(raw json.RawMessage) bool { return firstByte(raw) == '[' }

func isNumber(raw json.RawMessage) bool {
	c := firstByte(raw)
	return c == '-' || (c >= '0' && c <= '9')
}

func isGID(raw json.RawMessage) bool {
	var s string
	if firstByte(raw) != '"' || json.Unmarshal(raw, &s) != nil {
		return false
	}
	return strings.HasPrefix(s, gidPrefix)
}

func isConnection(raw json.RawMessage) bool {
	if !isObject(raw) {
		return false
	}
	var conn map[string]json.RawMessage
	if json.Unmarshal(raw, &conn) != nil {
		return false
	}
	return has(conn, "edges") || has(conn, "nodes")
}
