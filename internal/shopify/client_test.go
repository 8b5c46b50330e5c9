package shopify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/shopsync-service/internal/shopify"
	"github.com/fekuna/shopsync-service/internal/shopify/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *shopify.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return shopify.NewClient(shopify.Config{
		ShopDomain:     srv.URL,
		Token:          "shpat_test",
		APIVersion:     "2024-10",
		RetryMax:       3,
		RetryBaseDelay: time.Millisecond,
	}, srv.Client())
}

func TestGraph_SendsQueryAndDecodesData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		var req dto.GraphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(250), req.Variables["first"])
		assert.Equal(t, "abc", req.Variables["after"])
		io.WriteString(w, `{"data":{"products":{"pageInfo":{"hasNextPage":true,"endCursor":"def"},
			"edges":[{"cursor":"c1","node":{"id":"gid://shopify/Product/1"}}]}}}`)
	})

	page, err := shopify.FetchProductIDs(context.Background(), c, "abc")
	require.NoError(t, err)
	assert.True(t, page.Products.PageInfo.HasNextPage)
	assert.Equal(t, "def", page.Products.PageInfo.EndCursor)
	require.Len(t, page.Products.Edges, 1)
	assert.Equal(t, "gid://shopify/Product/1", page.Products.Edges[0].Node.ID)
}

func TestGraph_RetriesThrottlingAndServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			io.WriteString(w, `{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`)
		case 3:
			w.WriteHeader(http.StatusBadGateway)
		default:
			io.WriteString(w, `{"data":{"shop":{"name":"demo"}}}`)
		}
	})

	var out struct {
		Shop struct{ Name string } `json:"shop"`
	}
	require.NoError(t, c.Graph(context.Background(), `{ shop { name } }`, nil, &out))
	assert.Equal(t, "demo", out.Shop.Name)
	assert.Equal(t, int32(4), calls.Load())
}

func TestGraph_GivesUpAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Graph(context.Background(), `{ shop { name } }`, nil, nil)
	require.Error(t, err)
	assert.True(t, shopify.IsTransient(err))
	assert.Equal(t, int32(4), calls.Load(), "first try plus three retries")
}

func TestGraph_ErrorsKeyFails(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `{"errors":[{"message":"Field 'nope' doesn't exist","path":["query","nope"]}]}`)
	})

	err := c.Graph(context.Background(), `{ nope }`, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
	assert.False(t, shopify.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestREST(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/api/2024-10/products/1.json":
			assert.Equal(t, http.MethodGet, r.Method)
			io.WriteString(w, `{"product":{"id":1,"title":"Tee"}}`)
		case "/admin/api/2024-10/variants/2.json":
			io.WriteString(w, `{"errors":{"barcode":["is invalid"]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"errors":"Not Found"}`)
		}
	})
	ctx := context.Background()

	var out struct {
		Product struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
	}
	require.NoError(t, c.REST(ctx, http.MethodGet, "products/1.json", nil, &out))
	assert.Equal(t, "Tee", out.Product.Title)

	err := c.REST(ctx, http.MethodPut, "/variants/2.json", map[string]any{"variant": map[string]any{"barcode": "x"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is invalid")

	err = c.REST(ctx, http.MethodGet, "products/404.json", nil, nil)
	var statusErr *shopify.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPushVariantCodes_UserErrors(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req dto.GraphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gid://shopify/Product/10", req.Variables["productId"])
		io.WriteString(w, `{"data":{"productVariantsBulkUpdate":{"productVariants":[],
			"userErrors":[{"field":["variants","0","barcode"],"message":"Barcode is too long"}]}}}`)
	})

	barcode := "123"
	err := shopify.PushVariantCodes(context.Background(), c, 10, []dto.VariantInput{
		{ID: shopify.VariantGID(11), Barcode: &barcode, InventoryItem: &dto.InventoryItemInput{SKU: "TS-1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variants.0.barcode: Barcode is too long")
}
