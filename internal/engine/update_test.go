package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/remote"
)

func TestUpdateCartData_KeepsMatchedLocalInstances(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	local := line("p1", "sku1", "ci1", 1)
	s.Items = []*cart.LineItem{local}

	updateCartData(s, &remote.OrderResponse{
		OrderID: "o1",
		Items: []remote.WireItem{{
			ProductID: "p1", CatalogRefID: "sku1", CommerceItemID: "ci1",
			Quantity: 3, UnitPrice: decimal.RequireFromString("7.00"),
		}},
	})

	require.Len(t, s.Items, 1)
	// The caller's reference stays valid across the cycle.
	assert.Same(t, local, s.Items[0])
	assert.Equal(t, 3, local.Quantity)
	assert.True(t, local.UnitPrice.Equal(decimal.RequireFromString("7.00")))
	assert.Equal(t, "o1", s.OrderID)
}

func TestUpdateCartData_KeepsAddonLineInstanceByCommerceID(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	local := line("p1", "sku1", "ci-pwa", 1)
	local.Kind = cart.KindProductWithAddons
	local.ChildItems = []*cart.LineItem{{
		ProductID: "addon1", CatalogRefID: "asku1", CommerceItemID: "ci-addon", IsAddon: true, Quantity: 1,
	}}
	s.Items = []*cart.LineItem{local}

	updateCartData(s, &remote.OrderResponse{
		Items: []remote.WireItem{{
			ProductID: "p1", CatalogRefID: "sku1", CommerceItemID: "ci-pwa",
			Quantity: 2, UnitPrice: decimal.RequireFromString("9.00"),
			ChildItems: []remote.WireItem{{
				ProductID: "addon1", CatalogRefID: "asku1", CommerceItemID: "ci-addon",
				AddOnItem: true, Quantity: 2,
			}},
		}},
	})

	require.Len(t, s.Items, 1)
	assert.Same(t, local, s.Items[0])
	assert.Equal(t, 2, local.Quantity)
	assert.True(t, local.UnitPrice.Equal(decimal.RequireFromString("9.00")))
}

func TestUpdateCartData_DropsLinesAbsentFromResponse(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	s.Items = []*cart.LineItem{
		line("p1", "sku1", "ci1", 1),
		line("p2", "sku2", "ci2", 1),
	}

	updateCartData(s, &remote.OrderResponse{
		Items: []remote.WireItem{{ProductID: "p1", CatalogRefID: "sku1", CommerceItemID: "ci1", Quantity: 1}},
	})

	require.Len(t, s.Items, 1)
	assert.Equal(t, "p1", s.Items[0].ProductID)
}

func TestUpdateCartData_CollectsGiftMarkers(t *testing.T) {
	s := cart.NewState(cart.CombineYes)

	updateCartData(s, &remote.OrderResponse{
		Items: []remote.WireItem{{
			ProductID: "p1", CatalogRefID: "sku1", CommerceItemID: "ci1", Quantity: 1,
			GiftWithPurchaseInfo: []remote.WireGiftMarker{{GiftWithPurchaseID: "gwp1", AutoRemove: true}},
		}},
	})

	require.Len(t, s.GiftWithPurchaseOrderMarkers, 1)
	assert.Equal(t, "gwp1", s.GiftWithPurchaseOrderMarkers[0].GiftWithPurchaseID)
	assert.True(t, s.GiftWithPurchaseOrderMarkers[0].AutoRemove)
}

func TestUpdateCartData_CouponStatuses(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	s.Coupons = []*cart.Coupon{
		{Code: "APPLIED1", Status: cart.CouponClaimed},
		{Code: "CLAIMED1", Status: cart.CouponClaimed},
		{Code: "DROPPED1", Status: cart.CouponApplied},
	}

	updateCartData(s, &remote.OrderResponse{
		Items: []remote.WireItem{},
		OrderCouponsMap: map[string]remote.WirePromotionRecord{
			"APPLIED1": {PromotionID: "promoA", TotalAdjustment: decimal.NewFromInt(-5)},
		},
		ClaimedCouponMultiPromotions: map[string]remote.WirePromotionRecord{
			"CLAIMED1": {Promotions: []remote.WirePromotion{
				{PromotionID: "p1", Applied: true},
				{PromotionID: "p2"},
			}},
		},
	})

	require.Len(t, s.Coupons, 2)
	assert.Equal(t, cart.CouponApplied, cart.FindCoupon(s.Coupons, "APPLIED1").Status)
	assert.Equal(t, cart.CouponClaimed, cart.FindCoupon(s.Coupons, "CLAIMED1").Status)
	assert.Nil(t, cart.FindCoupon(s.Coupons, "DROPPED1"))

	require.Len(t, s.ClaimedWithAppliedPromotions, 1)
	assert.Equal(t, "CLAIMED1", s.ClaimedWithAppliedPromotions[0].Code)
}

func TestUpdateCartData_SecondaryTotals(t *testing.T) {
	s := cart.NewState(cart.CombineYes)

	updateCartData(s, &remote.OrderResponse{
		Items:              []remote.WireItem{},
		PriceInfo:          &remote.WirePriceInfo{Total: decimal.NewFromInt(100), CurrencyCode: "USD"},
		SecondaryPriceInfo: &remote.WirePriceInfo{Total: decimal.NewFromInt(135), CurrencyCode: "CAD"},
	})

	assert.Equal(t, "USD", s.Totals.CurrencyCode)
	require.NotNil(t, s.SecondaryTotals)
	assert.Equal(t, "CAD", s.SecondaryTotals.CurrencyCode)

	// A response without a secondary currency clears the secondary view.
	updateCartData(s, &remote.OrderResponse{
		Items:     []remote.WireItem{},
		PriceInfo: &remote.WirePriceInfo{Total: decimal.NewFromInt(100), CurrencyCode: "USD"},
	})
	assert.Nil(t, s.SecondaryTotals)
}

func TestUpdateCartData_OrderStateMapping(t *testing.T) {
	s := cart.NewState(cart.CombineYes)

	updateCartData(s, &remote.OrderResponse{State: "PENDING_PAYMENT"})
	assert.True(t, s.OrderState.SuppressesMutations())

	updateCartData(s, &remote.OrderResponse{State: "INCOMPLETE"})
	assert.False(t, s.OrderState.SuppressesMutations())
}

func TestUpdateCartData_GiftCardSync(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	s.GiftCards = []*cart.GiftCard{{Number: "6035100000001234", Pin: "1111"}}

	updateCartData(s, &remote.OrderResponse{
		Items: []remote.WireItem{},
		Payments: []remote.WirePayment{{
			PaymentMethod: cart.GiftCardPaymentMethod,
			MaskedNumber:  "************1234",
			Amount:        decimal.NewFromInt(20),
			Balance:       decimal.NewFromInt(30),
		}},
	})

	gc := s.GiftCards[0]
	assert.True(t, gc.Amount.Equal(decimal.NewFromInt(20)))
	assert.True(t, gc.Balance.Equal(decimal.NewFromInt(30)))
	assert.False(t, gc.PinCleared)
}

func TestUpdateCartData_NilResponse(t *testing.T) {
	s := cart.NewState(cart.CombineYes)
	s.Items = []*cart.LineItem{line("p1", "sku1", "ci1", 1)}

	updateCartData(s, nil)

	assert.Len(t, s.Items, 1)
}
