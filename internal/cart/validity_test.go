package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeside/cartengine/internal/catalog"
)

func pricedSKU(id string) catalog.SKU {
	price := decimal.NewFromInt(10)
	return catalog.SKU{ID: id, Active: true, ListPrice: &price}
}

func activeProduct(id string, skus ...catalog.SKU) *catalog.Product {
	return &catalog.Product{ID: id, DisplayName: id, Active: true, SKUs: skus}
}

func TestCheckValidity_AllValid(t *testing.T) {
	products := map[string]*catalog.Product{
		"parent": activeProduct("parent", pricedSKU("skuP")),
		"child":  activeProduct("child", pricedSKU("skuC")),
	}
	root := newSimpleItem("parent", "skuP", "ciP", 1)
	child := newSimpleItem("child", "skuC", "ciC", 1)
	child.DisplayName = "Child"
	root.ChildItems = []*LineItem{child}

	var rep ValidityReport
	CheckValidity(products, root, &rep)

	assert.False(t, rep.LineInvalid)
	assert.Empty(t, rep.InvalidNames)
	assert.Empty(t, rep.UnlinkedAddons)
}

func TestCheckValidity_MissingChildProductInvalidatesLine(t *testing.T) {
	products := map[string]*catalog.Product{
		"parent": activeProduct("parent", pricedSKU("skuP")),
	}
	root := newSimpleItem("parent", "skuP", "ciP", 1)
	child := newSimpleItem("gone", "skuG", "ciG", 1)
	child.DisplayName = "Removed Product"
	root.ChildItems = []*LineItem{child}

	var rep ValidityReport
	CheckValidity(products, root, &rep)

	assert.True(t, rep.LineInvalid)
	assert.Equal(t, []string{"Removed Product"}, rep.InvalidNames)
}

func TestCheckValidity_InactiveSKURecordsIDAndName(t *testing.T) {
	childProduct := activeProduct("child", catalog.SKU{ID: "skuC", Active: false})
	products := map[string]*catalog.Product{
		"parent": activeProduct("parent", pricedSKU("skuP")),
		"child":  childProduct,
	}
	root := newSimpleItem("parent", "skuP", "ciP", 1)
	child := newSimpleItem("child", "skuC", "ciC", 1)
	child.DisplayName = "Stale Variant"
	root.ChildItems = []*LineItem{child}

	var rep ValidityReport
	CheckValidity(products, root, &rep)

	assert.True(t, rep.LineInvalid)
	assert.Equal(t, []string{"Stale Variant"}, rep.InvalidNames)
	assert.Equal(t, []string{"skuC"}, rep.InvalidSKUs)
}

func TestCheckValidity_UnlinkedAddonDetachedNotInvalid(t *testing.T) {
	parent := activeProduct("parent", pricedSKU("skuP"))
	// Parent no longer links any add-ons.
	addonProduct := activeProduct("addon", pricedSKU("skuA"))
	products := map[string]*catalog.Product{
		"parent": parent,
		"addon":  addonProduct,
	}
	root := newSimpleItem("parent", "skuP", "ciP", 1)
	addon := newSimpleItem("addon", "skuA", "ciA", 1)
	addon.IsAddon = true
	addon.DisplayName = "Warranty"
	root.ChildItems = []*LineItem{addon}

	var rep ValidityReport
	CheckValidity(products, root, &rep)

	assert.False(t, rep.LineInvalid)
	require.Len(t, rep.UnlinkedAddons, 1)
	assert.Same(t, addon, rep.UnlinkedAddons[0])
	assert.Equal(t, []string{"Warranty"}, rep.InvalidNames)
}

func TestCheckValidity_LinkedAddonStillValid(t *testing.T) {
	parent := activeProduct("parent", pricedSKU("skuP"))
	parent.SelectedAddons = []catalog.AddonLink{{ProductID: "addon", SKUIDs: []string{"skuA"}}}
	products := map[string]*catalog.Product{
		"parent": parent,
		"addon":  activeProduct("addon", pricedSKU("skuA")),
	}
	root := newSimpleItem("parent", "skuP", "ciP", 1)
	addon := newSimpleItem("addon", "skuA", "ciA", 1)
	addon.IsAddon = true
	root.ChildItems = []*LineItem{addon}

	var rep ValidityReport
	CheckValidity(products, root, &rep)

	assert.Empty(t, rep.UnlinkedAddons)
	assert.False(t, rep.LineInvalid)
}

func TestValidityReport_AddNameDedupes(t *testing.T) {
	var rep ValidityReport
	rep.AddName("Widget")
	rep.AddName("Widget")
	rep.AddName("Gadget")

	assert.Equal(t, []string{"Widget", "Gadget"}, rep.InvalidNames)
}
