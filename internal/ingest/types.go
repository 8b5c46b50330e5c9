package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/shopspring/decimal"
)

const gidPrefix = "gid://"

// ParseGID accepts "gid://shopify/ProductVariant/998877" (optionally with a query suffix)
// or a plain decimal id and returns the numeric id.
func ParseGID(s string) (int64, error) {
	id := strings.TrimSpace(s)
	if strings.HasPrefix(id, gidPrefix) {
		if i := strings.IndexByte(id, '?'); i >= 0 {
			id = id[:i]
		}
		id = id[strings.LastIndexByte(id, '/')+1:]
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", apperr.ErrMalformedPayload, s)
	}
	return n, nil
}

// FlexID decodes a JSON number, a numeric string or a GID string. Null and "" decode to 0.
type FlexID int64

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		id, err := ParseGID(s)
		if err != nil {
			return err
		}
		*f = FlexID(id)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid id %s", apperr.ErrMalformedPayload, b)
	}
	*f = FlexID(n)
	return nil
}

// Tags decodes either a comma joined string or an array of strings.
type Tags []string

func (t *Tags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*t = nil
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = NormalizeTags(strings.Split(s, ","))
		return nil
	default:
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("%w: tags: %v", apperr.ErrMalformedPayload, err)
		}
		*t = NormalizeTags(list)
		return nil
	}
}

// NormalizeTags trims, drops empties and removes duplicates keeping the first occurrence.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Price decodes a number, a numeric string or a MoneyV2 style {"amount": ...} object.
type Price struct {
	decimal.Decimal
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null" || string(b) == `""`:
		p.Decimal = decimal.Zero
		return nil
	case b[0] == '{':
		var money struct {
			Amount Price `json:"amount"`
		}
		if err := json.Unmarshal(b, &money); err != nil {
			return err
		}
		p.Decimal = money.Amount.Decimal
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return p.parse(s)
	default:
		return p.parse(string(b))
	}
}

func (p *Price) parse(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: price %q", apperr.ErrMalformedPayload, s)
	}
	p.Decimal = d
	return nil
}

// Connection decodes a GraphQL list in any of its shapes: {edges:[{node}]}, {nodes:[...]}
// or a bare array.
type Connection[T any] []T

func (c *Connection[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*c = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*c = items
		return nil
	}

	var conn struct {
		Edges []struct {
			Node T `json:"node"`
		} `json:"edges"`
		Nodes []T `json:"nodes"`
	}
	if err := json.Unmarshal(b, &conn); err != nil {
		return err
	}
	items := conn.Nodes
	for _, e := range conn.Edges {
		items = append(items, e.Node)
	}
	*c = items
	return nil
}
