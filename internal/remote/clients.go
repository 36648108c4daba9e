package remote

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/storeside/cartengine/internal/catalog"
)

// OrderClient speaks the order service endpoints through an Adapter.
type OrderClient struct {
	adapter Adapter
}

// NewOrderClient creates an OrderClient over the given adapter.
func NewOrderClient(adapter Adapter) *OrderClient {
	return &OrderClient{adapter: adapter}
}

// CreateOrder persists a new incomplete order and prices it.
func (c *OrderClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	payload, err := c.adapter.Create(ctx, EndpointOrders, "", req)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return decodeOrder(payload)
}

// UpdateOrder re-submits the cart against an existing persisted order.
func (c *OrderClient) UpdateOrder(ctx context.Context, orderID string, req *OrderRequest) (*OrderResponse, error) {
	payload, err := c.adapter.Update(ctx, EndpointOrders, orderID, req)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %s", orderID)
	}
	return decodeOrder(payload)
}

// PriceCart prices the cart without persisting an order. Used for anonymous
// sessions and price-only refreshes.
func (c *OrderClient) PriceCart(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	payload, err := c.adapter.Create(ctx, EndpointPriceCart, "", req)
	if err != nil {
		return nil, errors.Wrap(err, "price cart")
	}
	return decodeOrder(payload)
}

// CurrentOrder loads the shopper's current incomplete order, the source of
// truth for a full cart reload.
func (c *OrderClient) CurrentOrder(ctx context.Context) (*OrderResponse, error) {
	payload, err := c.adapter.Load(ctx, EndpointCurrentOrder, "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "load current order")
	}
	return decodeOrder(payload)
}

// ShippingMethods reloads the shipping options available for the cart.
func (c *OrderClient) ShippingMethods(ctx context.Context, req *OrderRequest) (*ShippingMethodsResponse, error) {
	payload, err := c.adapter.Create(ctx, EndpointShippingMethods, "", req)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping methods")
	}
	var resp ShippingMethodsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.Wrap(err, "decode shipping methods")
	}
	return &resp, nil
}

func decodeOrder(payload []byte) (*OrderResponse, error) {
	var resp OrderResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return &resp, nil
}

// CatalogClient speaks the catalog and inventory endpoints.
type CatalogClient struct {
	adapter Adapter
}

// NewCatalogClient creates a CatalogClient over the given adapter.
func NewCatalogClient(adapter Adapter) *CatalogClient {
	return &CatalogClient{adapter: adapter}
}

// wireProduct is the catalog service's product shape.
type wireProduct struct {
	ID                   string           `json:"id"`
	DisplayName          string           `json:"displayName"`
	Active               bool             `json:"active"`
	NotForIndividualSale bool             `json:"notForIndividualSale"`
	ChildSKUs            []wireSKU        `json:"childSKUs"`
	SelectedAddons       []wireAddonLink  `json:"addOnProducts"`
}

type wireSKU struct {
	ID        string           `json:"repositoryId"`
	Active    bool             `json:"active"`
	ListPrice *decimal.Decimal `json:"listPrice"`
}

type wireAddonLink struct {
	ProductID string   `json:"addOnProductId"`
	SKUIDs    []string `json:"addOnSkuIds"`
}

// ProductData fetches current catalog data for the given product ids. A
// product missing from the response simply does not appear in the result map.
func (c *CatalogClient) ProductData(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	if len(ids) == 0 {
		return map[string]*catalog.Product{}, nil
	}
	payload, err := c.adapter.Load(ctx, EndpointProducts, "", Params{
		"productIds": strings.Join(ids, ","),
	})
	if err != nil {
		return nil, errors.Wrap(err, "load product data")
	}

	var body struct {
		Items []wireProduct `json:"items"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, errors.Wrap(err, "decode product data")
	}

	out := make(map[string]*catalog.Product, len(body.Items))
	for _, wp := range body.Items {
		out[wp.ID] = toProduct(wp)
	}
	return out, nil
}

// StockStatus fetches availability for the given SKU ids.
func (c *CatalogClient) StockStatus(ctx context.Context, skuIDs []string) (map[string]string, error) {
	if len(skuIDs) == 0 {
		return map[string]string{}, nil
	}
	payload, err := c.adapter.Load(ctx, EndpointStockStatus, "", Params{
		"skuIds": strings.Join(skuIDs, ","),
	})
	if err != nil {
		return nil, errors.Wrap(err, "load stock status")
	}

	var body struct {
		Items []struct {
			SKUID       string `json:"catalogRefId"`
			StockStatus string `json:"stockStatus"`
		} `json:"items"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, errors.Wrap(err, "decode stock status")
	}

	out := make(map[string]string, len(body.Items))
	for _, entry := range body.Items {
		out[entry.SKUID] = entry.StockStatus
	}
	return out, nil
}

func toProduct(wp wireProduct) *catalog.Product {
	p := &catalog.Product{
		ID:                   wp.ID,
		DisplayName:          wp.DisplayName,
		Active:               wp.Active,
		NotForIndividualSale: wp.NotForIndividualSale,
	}
	for _, sku := range wp.ChildSKUs {
		p.SKUs = append(p.SKUs, catalog.SKU{
			ID:        sku.ID,
			Active:    sku.Active,
			ListPrice: sku.ListPrice,
		})
	}
	for _, link := range wp.SelectedAddons {
		p.SelectedAddons = append(p.SelectedAddons, catalog.AddonLink{
			ProductID: link.ProductID,
			SKUIDs:    link.SKUIDs,
		})
	}
	return p
}
