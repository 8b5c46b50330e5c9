// Package search mirrors variants into Elasticsearch so free-text filters can pick
// generation targets without scanning the database.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fekuna/shopsync-service/config"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/product/dto"
)

const maxResults = 10000

const indexMapping = `{
  "mappings": {
    "properties": {
      "shop_id":       { "type": "long" },
      "product_id":    { "type": "long" },
      "variant_id":    { "type": "long" },
      "product_title": { "type": "text" },
      "variant_title": { "type": "text" },
      "sku":           { "type": "keyword", "normalizer": "lowercase" },
      "barcode":       { "type": "keyword" },
      "vendor":        { "type": "keyword" },
      "product_type":  { "type": "keyword" },
      "status":        { "type": "keyword" },
      "tags":          { "type": "keyword" }
    }
  },
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase": { "type": "custom", "filter": ["lowercase"] }
      }
    }
  }
}`

// variantDoc is one indexed variant with the product fields filters need.
type variantDoc struct {
	ShopID       int64    `json:"shop_id"`
	ProductID    int64    `json:"product_id"`
	VariantID    int64    `json:"variant_id"`
	ProductTitle string   `json:"product_title"`
	VariantTitle string   `json:"variant_title"`
	SKU          string   `json:"sku,omitempty"`
	Barcode      string   `json:"barcode,omitempty"`
	Vendor       string   `json:"vendor,omitempty"`
	ProductType  string   `json:"product_type,omitempty"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags,omitempty"`
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

var _ product.SearchIndex = (*Client)(nil)

func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	index := cfg.Index
	if index == "" {
		index = "shop_variants"
	}
	return &Client{es: es, index: index}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError("info", res)
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError("create index", res)
}

func docID(shopID, variantID int64) string {
	return fmt.Sprintf("%d-%d", shopID, variantID)
}

// IndexProduct replaces the product's variant documents.
func (c *Client) IndexProduct(ctx context.Context, p *model.Product) error {
	if err := c.DeleteProduct(ctx, p.ShopID, p.ExternalID); err != nil {
		return err
	}
	if len(p.Variants) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, v := range p.Variants {
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": docID(p.ShopID, v.ExternalID)}}
		doc := variantDoc{
			ShopID:       p.ShopID,
			ProductID:    p.ExternalID,
			VariantID:    v.ExternalID,
			ProductTitle: p.Title,
			VariantTitle: v.Title,
			SKU:          v.SKUValue(),
			Barcode:      v.BarcodeValue(),
			Vendor:       p.Vendor,
			ProductType:  p.ProductType,
			Status:       p.Status,
			Tags:         p.Tags,
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(&body, c.es.Bulk.WithContext(ctx), c.es.Bulk.WithIndex(c.index))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := responseError("bulk index", res); err != nil {
		return err
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if out.Errors {
		return fmt.Errorf("bulk index of product %d reported item errors", p.ExternalID)
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, shopID, externalID int64) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"shop_id": shopID}},
					{"term": map[string]any{"product_id": externalID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	res, err := c.es.DeleteByQuery([]string{c.index}, bytes.NewReader(body),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// a missing index has nothing to delete
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError("delete by query", res)
}

func (c *Client) SearchVariantIDs(ctx context.Context, f *dto.VariantFilter) ([]int64, error) {
	filters := []map[string]any{
		{"term": map[string]any{"shop_id": f.ShopID}},
	}
	if f.Vendor != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"vendor": f.Vendor}})
	}
	if f.ProductType != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"product_type": f.ProductType}})
	}
	if f.Status != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"status": f.Status}})
	}

	boolQuery := map[string]any{"filter": filters}
	if f.Query != "" {
		boolQuery["must"] = []map[string]any{{
			"query_string": map[string]any{
				"query":            fmt.Sprintf("*%s*", escapeQueryString(f.Query)),
				"fields":           []string{"product_title^3", "variant_title", "sku"},
				"analyze_wildcard": true,
			},
		}}
	}

	size := maxResults
	if f.Limit > 0 && f.Limit < maxResults {
		size = f.Limit
	}
	query := map[string]any{
		"query":   map[string]any{"bool": boolQuery},
		"_source": []string{"variant_id"},
		"sort":    []map[string]any{{"variant_id": "asc"}},
		"size":    size,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := responseError("search", res); err != nil {
		return nil, err
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source struct {
					VariantID int64 `json:"variant_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.Source.VariantID)
	}
	return ids, nil
}

var queryStringEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `=`, `\=`, `&`, `\&`, `|`, `\|`, `>`, `\>`, `<`, `\<`,
	`!`, `\!`, `(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`,
	`"`, `\"`, `~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`, ` `, `\ `,
)

func escapeQueryString(s string) string {
	return queryStringEscaper.Replace(strings.ToLower(s))
}

func responseError(action string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("elasticsearch %s: %s: %s", action, res.Status(), strings.TrimSpace(string(msg)))
}
