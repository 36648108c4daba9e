package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/catalog"
)

func sellableProduct(id string, skuIDs ...string) *catalog.Product {
	p := &catalog.Product{ID: id, DisplayName: id, Active: true}
	price := decimal.NewFromInt(10)
	for _, skuID := range skuIDs {
		p.SKUs = append(p.SKUs, catalog.SKU{ID: skuID, Active: true, ListPrice: &price})
	}
	return p
}

func TestRemoveInvalidItems_NoInvalidItemsNoOp(t *testing.T) {
	f := newFixture()
	f.catalog.products = map[string]*catalog.Product{
		"p1": sellableProduct("p1", "sku1"),
	}
	ctx := context.Background()
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))
	pricedBefore := f.orders.priceCalls

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, pricedBefore, f.orders.priceCalls)

	// Idempotent on an already-clean tree.
	removed, err = f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveInvalidItems_InactiveProductRemoved(t *testing.T) {
	f := newFixture()
	inactive := sellableProduct("p2", "sku2")
	inactive.Active = false
	f.catalog.products = map[string]*catalog.Product{
		"p1": sellableProduct("p1", "sku1"),
		"p2": inactive,
	}
	ctx := context.Background()
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p2", "sku2", 1)))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)

	items := f.engine.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.True(t, f.notifier.has(NoteItemRemoved))
}

func TestRemoveInvalidItems_MissingProductRemoved(t *testing.T) {
	f := newFixture()
	f.catalog.products = map[string]*catalog.Product{}
	ctx := context.Background()
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, f.engine.Items())
}

func TestRemoveInvalidItems_NotForIndividualSaleRemoved(t *testing.T) {
	f := newFixture()
	bundleOnly := sellableProduct("p1", "sku1")
	bundleOnly.NotForIndividualSale = true
	f.catalog.products = map[string]*catalog.Product{"p1": bundleOnly}
	ctx := context.Background()
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, f.engine.Items())
}

func TestRemoveInvalidItems_UnpricedSKURemoved(t *testing.T) {
	f := newFixture()
	p := &catalog.Product{
		ID: "p1", Active: true,
		SKUs: []catalog.SKU{{ID: "sku1", Active: true}},
	}
	f.catalog.products = map[string]*catalog.Product{"p1": p}
	ctx := context.Background()
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, f.engine.Items())
}

func TestRemoveInvalidItems_UnlinkedAddonDetachedLineKept(t *testing.T) {
	f := newFixture()
	parent := sellableProduct("p1", "sku1")
	// The add-on product still exists but the parent no longer links it.
	f.catalog.products = map[string]*catalog.Product{
		"p1":    parent,
		"addon": sellableProduct("addon", "skuA"),
	}
	ctx := context.Background()

	req := simpleAdd("p1", "sku1", 1)
	req.HasSelectedAddons = true
	req.ChildItems = []*cart.LineItem{{
		ProductID: "addon", CatalogRefID: "skuA", CommerceItemID: "ciA",
		Quantity: 1, IsAddon: true, DisplayName: "Warranty",
	}}
	require.NoError(t, f.engine.AddItem(ctx, req))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)

	items := f.engine.Items()
	require.Len(t, items, 1)
	assert.Empty(t, items[0].ChildItems)
}

func TestRemoveInvalidItems_InvalidSubItemDropsWholeLine(t *testing.T) {
	f := newFixture()
	gone := sellableProduct("sub", "skuS")
	gone.Active = false
	f.catalog.products = map[string]*catalog.Product{
		"p1":  sellableProduct("p1", "sku1"),
		"sub": gone,
	}
	ctx := context.Background()

	req := simpleAdd("p1", "sku1", 1)
	req.ConfiguratorID = "cfg1"
	req.ChildItems = []*cart.LineItem{{
		ProductID: "sub", CatalogRefID: "skuS", CommerceItemID: "ciS",
		Quantity: 1, DisplayName: "Component",
	}}
	require.NoError(t, f.engine.AddItem(ctx, req))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, f.engine.Items())
}

func TestRemoveInvalidItems_SuppressedDuringPendingPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.orders.state = "PENDING_PAYMENT"
	require.NoError(t, f.engine.AddItem(ctx, simpleAdd("p1", "sku1", 1)))

	removed, err := f.engine.RemoveInvalidItems(ctx)
	require.NoError(t, err)
	assert.False(t, removed)
	require.Len(t, f.engine.Items(), 1)
}

func TestRemoveInvalidItems_EmptyCartNoFetch(t *testing.T) {
	f := newFixture()
	f.catalog.err = context.DeadlineExceeded

	removed, err := f.engine.RemoveInvalidItems(context.Background())
	require.NoError(t, err)
	assert.False(t, removed)
}
