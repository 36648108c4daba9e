package remote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeside/cartengine/internal/cart"
)

func TestWireItem_ToLineItem_KindAssignment(t *testing.T) {
	simple := WireItem{ProductID: "p1", CatalogRefID: "sku1", Quantity: 1}
	assert.Equal(t, cart.KindSimple, simple.ToLineItem().Kind)

	configured := WireItem{
		ProductID: "p2", CatalogRefID: "sku2", Quantity: 1, ConfiguratorID: "cfg1",
	}
	assert.Equal(t, cart.KindConfigurable, configured.ToLineItem().Kind)

	withAddon := WireItem{
		ProductID: "p3", CatalogRefID: "sku3", Quantity: 1,
		ChildItems: []WireItem{
			{ProductID: "addon", CatalogRefID: "skuA", Quantity: 1, AddOnItem: true},
		},
	}
	item := withAddon.ToLineItem()
	assert.Equal(t, cart.KindProductWithAddons, item.Kind)
	require.Len(t, item.ChildItems, 1)
	assert.True(t, item.ChildItems[0].IsAddon)

	// Non-addon children make a configurable, not a product with add-ons.
	withSub := WireItem{
		ProductID: "p4", CatalogRefID: "sku4", Quantity: 1,
		ChildItems: []WireItem{{ProductID: "sub", CatalogRefID: "skuS", Quantity: 1}},
	}
	assert.Equal(t, cart.KindConfigurable, withSub.ToLineItem().Kind)
}

func TestWireItem_ToLineItem_Fields(t *testing.T) {
	ext := decimal.RequireFromString("12.34")
	w := WireItem{
		ProductID:             "p1",
		CatalogRefID:          "sku1",
		CommerceItemID:        "ci1",
		DisplayName:           "Widget",
		Quantity:              3,
		UnitPrice:             decimal.RequireFromString("9.99"),
		RawTotalPrice:         decimal.RequireFromString("29.97"),
		ExternalPrice:         &ext,
		ExternalPriceQuantity: 2,
		DiscountInfo:          []WireDiscount{{PromotionID: "promo1", Amount: decimal.NewFromInt(-1)}},
		DetailedItemPriceInfo: []WirePriceDetail{{Quantity: 3, CurrencyCode: "USD"}},
		GiftWithPurchaseInfo:  []WireGiftMarker{{GiftWithPurchaseID: "gwp1"}},
		StockState:            "IN_STOCK",
	}

	item := w.ToLineItem()
	assert.Equal(t, "ci1", item.CommerceItemID)
	assert.Equal(t, 3, item.Quantity)
	// UpdatableQuantity defaults to the committed quantity when absent.
	assert.Equal(t, 3, item.UpdatableQuantity)
	assert.True(t, item.ExternalPrice.Equal(ext))
	assert.Equal(t, 2, item.ExternalPriceQuantity)
	require.Len(t, item.DiscountInfo, 1)
	require.Len(t, item.DetailedPriceInfo, 1)
	require.Len(t, item.GiftWithPurchaseMarkers, 1)
	assert.Equal(t, cart.StockInStock, item.StockState)
}

func TestFromLineItem_ProposedQuantityWins(t *testing.T) {
	item := &cart.LineItem{
		ProductID:         "p1",
		CatalogRefID:      "sku1",
		CommerceItemID:    "ci1",
		Quantity:          2,
		UpdatableQuantity: 5,
	}

	w := FromLineItem(item)
	assert.Equal(t, 5, w.Quantity)

	item.UpdatableQuantity = 0
	assert.Equal(t, 2, FromLineItem(item).Quantity)
}

func TestFromLineItem_RecursesChildren(t *testing.T) {
	item := &cart.LineItem{
		ProductID: "p1", CatalogRefID: "sku1", Quantity: 1,
		ChildItems: []*cart.LineItem{
			{ProductID: "addon", CatalogRefID: "skuA", Quantity: 1, IsAddon: true},
		},
	}

	w := FromLineItem(item)
	require.Len(t, w.ChildItems, 1)
	assert.True(t, w.ChildItems[0].AddOnItem)
}

func TestToPromotionRecords(t *testing.T) {
	out := ToPromotionRecords(map[string]WirePromotionRecord{
		"SAVE10": {
			Description:     "10% off",
			PromotionID:     "promo1",
			TotalAdjustment: decimal.NewFromInt(-2),
			Promotions:      []WirePromotion{{PromotionID: "pA", Applied: true}},
		},
	})

	require.Len(t, out, 1)
	rec := out["SAVE10"]
	assert.Equal(t, "promo1", rec.PromotionID)
	require.Len(t, rec.Promotions, 1)
	assert.Equal(t, "pA", rec.Promotions[0].ID)
	assert.True(t, rec.Promotions[0].Applied)

	assert.Nil(t, ToPromotionRecords(nil))
}

func TestToPaymentRecords(t *testing.T) {
	out := ToPaymentRecords([]WirePayment{{
		PaymentMethod: cart.GiftCardPaymentMethod,
		MaskedNumber:  "****1234",
		Amount:        decimal.NewFromInt(10),
	}})

	require.Len(t, out, 1)
	assert.Equal(t, cart.GiftCardPaymentMethod, out[0].PaymentMethod)
	assert.Equal(t, "****1234", out[0].MaskedNumber)
}
