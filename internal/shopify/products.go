package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type productsEnvelope struct {
	Products []Product `json:"products"`
}

type productEnvelope struct {
	Product Product `json:"product"`
}

// ListProducts returns the full catalog, newest first. A fresh cached copy
// is served without a request; concurrent misses share one fetch.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	if products, ok := c.catalog.Load(ctx); ok {
		c.recorder.CatalogCache(true)
		return slices.Clone(products), nil
	}
	c.recorder.CatalogCache(false)

	v, err, _ := c.catalogFlight.Do("catalog", func() (any, error) {
		return c.fetchCatalog(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Product)), nil
}

// RefreshCatalog fetches the catalog regardless of cache state and replaces
// the cached copy.
func (c *Client) RefreshCatalog(ctx context.Context) ([]Product, error) {
	products, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(products), nil
}

func (c *Client) fetchCatalog(ctx context.Context) ([]Product, error) {
	products, err := collectPages(ctx, c, request{
		op:     "products.list",
		method: http.MethodGet,
		path:   "/products.json",
		query:  url.Values{"limit": {strconv.Itoa(c.pageSize)}},
	}, func(e *productsEnvelope) []Product { return e.Products })
	if err != nil {
		return nil, err
	}
	newestFirst(products, func(p Product) (time.Time, int64) { return p.CreatedAt, p.ID })
	c.catalog.Store(ctx, products)
	return products, nil
}

// GetProduct fetches one product without consulting the catalog.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var env productEnvelope
	_, err := c.do(ctx, request{
		op:     "products.get",
		method: http.MethodGet,
		path:   fmt.Sprintf("/products/%d.json", id),
	}, &env)
	return env.Product, err
}

// ProductImageURL resolves a product's image, preferring the cached
// catalog. It returns "" when the product has no image.
func (c *Client) ProductImageURL(ctx context.Context, productID int64) (string, error) {
	if products, err := c.ListProducts(ctx); err == nil {
		if p, ok := lo.Find(products, func(p Product) bool { return p.ID == productID }); ok {
			return p.ImageURL(), nil
		}
	}
	p, err := c.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	return p.ImageURL(), nil
}

// SearchProducts filters the cached catalog by title, vendor, handle or
// variant SKU, case-insensitively.
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := lo.Filter(products, func(p Product, _ int) bool {
		if needle == "" {
			return true
		}
		for _, field := range []string{p.Title, p.Vendor, p.Handle} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return lo.SomeBy(p.Variants, func(v Variant) bool {
			return v.SKU != "" && strings.Contains(strings.ToLower(v.SKU), needle)
		})
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
