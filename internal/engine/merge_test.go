package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeside/cartengine/internal/cart"
)

func line(productID, skuID, commerceItemID string, qty int) *cart.LineItem {
	return &cart.LineItem{
		ProductID:         productID,
		CatalogRefID:      skuID,
		CommerceItemID:    commerceItemID,
		Kind:              cart.KindSimple,
		Quantity:          qty,
		UpdatableQuantity: qty,
	}
}

func TestMergeItems_NewItemsCloned(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	in := line("p1", "sku1", "ci1", 2)

	MergeItems(s, []*cart.LineItem{in})

	require.Len(t, s.Items, 1)
	assert.NotSame(t, in, s.Items[0])
	assert.Equal(t, 2, s.Items[0].Quantity)
}

func TestMergeItems_SamePersistedLineIdempotent(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	snap := []*cart.LineItem{line("p1", "sku1", "ci1", 3)}

	MergeItems(s, snap)
	MergeItems(s, snap)

	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
}

func TestMergeItems_UnpersistedDuplicateAccumulates(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	s.Items = []*cart.LineItem{line("p1", "sku1", "", 1)}

	MergeItems(s, []*cart.LineItem{line("p1", "sku1", "", 2)})

	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.Equal(t, 3, s.Items[0].UpdatableQuantity)
}

func TestMergeItems_PricingOverwritten(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	existing := line("p1", "sku1", "ci1", 1)
	existing.UnitPrice = decimal.NewFromInt(5)
	s.Items = []*cart.LineItem{existing}

	in := line("p1", "sku1", "ci1", 1)
	in.UnitPrice = decimal.RequireFromString("4.50")
	in.DiscountInfo = []cart.DiscountInfo{{PromotionID: "promo1"}}
	MergeItems(s, []*cart.LineItem{in})

	assert.True(t, existing.UnitPrice.Equal(decimal.RequireFromString("4.50")))
	require.Len(t, existing.DiscountInfo, 1)
}

func TestMergeItems_CombineNoMergesOnlyExactPersistedLine(t *testing.T) {
	s := cart.NewState(cart.CombineNo)
	s.Items = []*cart.LineItem{line("p1", "sku1", "", 1)}

	// Same product/SKU but not the same persisted line: a second line is legal.
	MergeItems(s, []*cart.LineItem{line("p1", "sku1", "", 1)})
	assert.Len(t, s.Items, 2)

	s.Items = []*cart.LineItem{line("p1", "sku1", "ci1", 1)}
	MergeItems(s, []*cart.LineItem{line("p1", "sku1", "ci1", 4)})
	require.Len(t, s.Items, 1)
	assert.Equal(t, 4, s.Items[0].Quantity)
}
